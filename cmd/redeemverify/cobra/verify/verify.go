/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verify

import (
	"fmt"

	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/common"
	"github.com/hyperledger-labs/redeemverify/token/services/batch"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	// Workers is the size of the verification pool, 0 for the available parallelism
	Workers int
	// Header tells that the first line names the columns
	Header bool
	// Malformed is the policy for lines that cannot be decoded
	Malformed string
	// Ledger is the ledger driver
	Ledger string
	// DataSource locates the ledger database
	DataSource string
	// IncludeReason adds the rejection reason to the file ledgers
	IncludeReason bool
	// Pushgateway receives the run metrics
	Pushgateway string
)

// Cmd returns the Cobra Command for the verification of a redemption export.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <input>",
		Short: "Verify a redemption export.",
		Long: `Verifies every redemption of the export against the issuer keys and writes the ids of the
verified and the rejected redemptions to the success and the failure ledger.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected the input file as the only argument, got %d args", len(args))
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			return Verify(cmd, args[0])
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&Workers, "workers", "w", 0, "number of verification workers, 0 for the available parallelism")
	flags.BoolVar(&Header, "header", false, "the first line of the input names the columns")
	flags.StringVar(&Malformed, "malformed", "", "policy for undecodable lines: abort or route")
	flags.StringVar(&Ledger, "ledger", "", "ledger driver: file, sqlite or postgres")
	flags.StringVar(&DataSource, "data-source", "", "ledger database data source")
	flags.BoolVar(&IncludeReason, "include-reason", false, "append the rejection reason to the file ledgers")
	flags.StringVar(&Pushgateway, "pushgateway", "", "Prometheus Pushgateway URL")
	return cmd
}

// Verify runs one batch over input.
func Verify(cmd *cobra.Command, input string) error {
	cfg, err := common.LoadConfig(cmd.Flags())
	if err != nil {
		return errors.WithMessage(err, "failed to load configuration")
	}
	job, err := batch.NewJob(cfg)
	if err != nil {
		return err
	}
	summary, err := job.Run(cmd.Context(), input)
	if err != nil {
		return errors.WithMessagef(err, "verification run [%s] aborted", job.RunID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d verified, %d failed\n", job.RunID, summary.Verified, summary.Failed)
	return nil
}
