/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger persists verification outcomes. A ledger has a success and a failure side;
// every outcome lands on exactly one of them.
package ledger

import (
	"context"

	"github.com/hyperledger-labs/redeemverify/token/services/logging"
	"github.com/hyperledger-labs/redeemverify/token/services/verifier"
)

var logger = logging.MustGetLogger("ledger")

// Sink is append only and owned by a single collector.
type Sink interface {
	Append(ctx context.Context, o verifier.Outcome) error
	Close() error
}
