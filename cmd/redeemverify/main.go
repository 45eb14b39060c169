/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/augment"
	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/common"
	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/gen"
	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/printconfig"
	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/verify"
	"github.com/hyperledger-labs/redeemverify/cmd/redeemverify/cobra/version"
	"github.com/hyperledger-labs/redeemverify/token/services/logging"
	"github.com/spf13/cobra"
)

// The main command describes the service and defaults to printing the help message.
var mainCmd = &cobra.Command{Use: "redeemverify"}

func main() {
	common.AddFlags(mainCmd.PersistentFlags())

	mainCmd.AddCommand(verify.Cmd())
	mainCmd.AddCommand(augment.Cmd())
	mainCmd.AddCommand(gen.Cmd())
	mainCmd.AddCommand(printconfig.Cmd())
	mainCmd.AddCommand(version.Cmd())

	err := mainCmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
