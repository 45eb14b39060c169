/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redemption

import (
	"bytes"
	"testing"

	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSample(t *testing.T) {
	dec := NewDecoder(DefaultOptions())
	var buf bytes.Buffer
	s, err := GenerateSample(&buf, dec, SampleOptions{Count: 10, Tampered: 0.2, Unknown: 0.3, Value: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Len(t, s.Tampered, 2)
	assert.Len(t, s.Unknown, 3)
	assert.Len(t, s.Valid, 5)

	outcome := map[string]string{}
	r := NewReader(&buf, dec, false)
	for {
		rec, err := r.Next()
		if err != nil {
			break
		}
		switch {
		case rec.Credential.IssuerPublicKey != s.Key.PublicKey.EncodeBase64():
			outcome[rec.ID] = "unknown"
		case voprf.VerifyRedemption(s.Key, rec.Credential.TokenPreimage, rec.Credential.Payload, rec.Credential.Signature):
			outcome[rec.ID] = "valid"
		default:
			outcome[rec.ID] = "tampered"
		}
	}
	require.Len(t, outcome, 10)
	for _, id := range s.Valid {
		assert.Equal(t, "valid", outcome[id])
	}
	for _, id := range s.Tampered {
		assert.Equal(t, "tampered", outcome[id])
	}
	for _, id := range s.Unknown {
		assert.Equal(t, "unknown", outcome[id])
	}
}

func TestGenerateSampleInvalidOptions(t *testing.T) {
	_, err := GenerateSample(&bytes.Buffer{}, NewDecoder(DefaultOptions()), SampleOptions{Count: 1, Tampered: 0.7, Unknown: 0.7})
	assert.Error(t, err)
}
