/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package gen

import (
	"fmt"
	"os"

	"github.com/hyperledger-labs/redeemverify/token/services/redemption"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	// OutputFile receives the generated export
	OutputFile string
	// Count is the number of records
	Count int
	// Tampered is the share of records whose payload changes after signing
	Tampered float64
	// Unknown is the share of records signed by an issuer outside the generated key
	Unknown float64
	// Value is the value carried by every credential
	Value string
)

// Cmd returns the Cobra Command for the generation of a sample export.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a sample redemption export.",
		Long: `Generates a fresh issuer key and a redemption export signed with it, mixing valid, tampered
and unknown issuer redemptions. The issuer key is printed so that the export can be verified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			return Gen(cmd)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&OutputFile, "output", "o", "redemptions.csv", "output file")
	flags.IntVarP(&Count, "count", "n", 10, "number of records")
	flags.Float64Var(&Tampered, "tampered", 0.1, "share of tampered records")
	flags.Float64Var(&Unknown, "unknown", 0.1, "share of records claiming an unknown issuer")
	flags.StringVar(&Value, "value", "1", "value of every credential")
	return cmd
}

// Gen writes the sample to OutputFile.
func Gen(cmd *cobra.Command) error {
	value, err := decimal.NewFromString(Value)
	if err != nil {
		return errors.Wrapf(err, "invalid value [%s]", Value)
	}
	f, err := os.OpenFile(OutputFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrapf(err, "failed to create output file [%s]", OutputFile)
	}
	defer f.Close()

	s, err := redemption.GenerateSample(f, redemption.NewDecoder(redemption.DefaultOptions()), redemption.SampleOptions{
		Count:    Count,
		Tampered: Tampered,
		Unknown:  Unknown,
		Value:    value,
	})
	if err != nil {
		return errors.WithMessage(err, "failed to generate sample")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "issuer key: %s\n", s.Key.EncodeBase64())
	fmt.Fprintf(out, "wrote %d records to %s: %d valid, %d tampered, %d unknown issuer\n",
		Count, OutputFile, len(s.Valid), len(s.Tampered), len(s.Unknown))
	return nil
}
