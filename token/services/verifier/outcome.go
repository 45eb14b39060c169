/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"github.com/hyperledger-labs/redeemverify/token/services/redemption"
	"github.com/shopspring/decimal"
)

// Reason tells why a record was rejected. None marks a verified record.
type Reason int

const (
	None Reason = iota
	UnknownIssuer
	SignatureMismatch
	MalformedRecord
)

func (r Reason) String() string {
	switch r {
	case None:
		return "none"
	case UnknownIssuer:
		return "unknown_issuer"
	case SignatureMismatch:
		return "signature_mismatch"
	case MalformedRecord:
		return "malformed_record"
	default:
		return "unknown"
	}
}

// Reasons lists every rejection reason.
var Reasons = []Reason{UnknownIssuer, SignatureMismatch, MalformedRecord}

// Outcome is the verdict on exactly one input record.
type Outcome struct {
	redemption.Correlation
	Reason Reason
	Value  decimal.Decimal
}

func (o Outcome) Verified() bool {
	return o.Reason == None
}
