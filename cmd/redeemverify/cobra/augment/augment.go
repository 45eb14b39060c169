/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package augment

import (
	"fmt"
	"io"
	"os"

	"github.com/hyperledger-labs/redeemverify/token/services/issuer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	// InputFile is the issuer dump, stdin if empty
	InputFile string
	// OutputFile receives the augmented dump, stdout if empty
	OutputFile string
	// KeyColumn is the zero based column of the signing key
	KeyColumn int
)

// Cmd returns the Cobra Command for the issuer dump augmentation.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "augment",
		Short: "Append the derived public key to an issuer dump.",
		Long: `Reads an issuer dump in CSV format, derives the public key of the signing key found in the
key column and appends it, base64 encoded, as the last column of every row.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			return Augment(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&InputFile, "input", "i", "", "issuer dump, stdin if not set")
	flags.StringVarP(&OutputFile, "output", "o", "", "augmented dump, stdout if not set")
	flags.IntVar(&KeyColumn, "key-column", 1, "zero based column holding the signing key")
	return cmd
}

// Augment reads from InputFile or in and writes to OutputFile or out.
func Augment(in io.Reader, out io.Writer) error {
	if len(InputFile) != 0 {
		f, err := os.Open(InputFile)
		if err != nil {
			return errors.Wrapf(err, "failed to open input file [%s]", InputFile)
		}
		defer f.Close()
		in = f
	}
	if len(OutputFile) != 0 {
		f, err := os.OpenFile(OutputFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return errors.Wrapf(err, "failed to create output file [%s]", OutputFile)
		}
		defer f.Close()
		out = f
	}
	if _, err := issuer.Augment(in, out, KeyColumn); err != nil {
		return errors.WithMessage(err, "failed to augment issuer dump")
	}
	return nil
}
