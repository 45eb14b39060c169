/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package printconfig

import (
	"fmt"

	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// Cmd returns the Cobra Command for printing the effective configuration.
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration.",
		Long:  "Prints the configuration resolved from defaults, file, environment and flags, with secrets redacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			cfg, err := common.LoadConfig(cmd.Flags())
			if err != nil {
				return errors.WithMessage(err, "failed to load configuration")
			}
			raw, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return errors.Wrap(err, "failed to marshal configuration")
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
}
