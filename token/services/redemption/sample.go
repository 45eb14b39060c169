/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redemption

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type SampleOptions struct {
	Count int
	// Tampered and Unknown are the shares of records whose payload is changed after signing or
	// that claim an issuer outside the generated key.
	Tampered float64
	Unknown  float64
	Value    decimal.Decimal
	// Rand defaults to crypto/rand.
	Rand io.Reader
	// Now defaults to time.Now.
	Now func() time.Time
}

// Sample describes a generated export.
type Sample struct {
	Key      *voprf.SigningKey
	Valid    []string
	Tampered []string
	Unknown  []string
}

// GenerateSample writes opts.Count records signed under a fresh issuer key.
func GenerateSample(w io.Writer, enc *Decoder, opts SampleOptions) (*Sample, error) {
	if opts.Count < 0 || opts.Tampered < 0 || opts.Unknown < 0 || opts.Tampered+opts.Unknown > 1 {
		return nil, errors.Errorf("invalid sample options: count %d, tampered %v, unknown %v", opts.Count, opts.Tampered, opts.Unknown)
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	key, err := voprf.GenerateSigningKey(opts.Rand)
	if err != nil {
		return nil, errors.WithMessage(err, "failed generating issuer key")
	}
	stranger, err := voprf.GenerateSigningKey(opts.Rand)
	if err != nil {
		return nil, errors.WithMessage(err, "failed generating unknown issuer key")
	}

	tampered := int(float64(opts.Count) * opts.Tampered)
	unknown := int(float64(opts.Count) * opts.Unknown)
	s := &Sample{Key: key}
	bw := bufio.NewWriter(w)
	for i := 0; i < opts.Count; i++ {
		signer := key
		if i >= tampered && i < tampered+unknown {
			signer = stranger
		}
		t, err := voprf.GenerateTokenPreimage(opts.Rand)
		if err != nil {
			return nil, err
		}
		payload := []byte(fmt.Sprintf(`{"recipient":"sample-%d","amount":1}`, i))
		sig := signer.RederiveUnblindedToken(t).DeriveVerificationKey().Sign(payload)
		if i < tampered {
			payload = append(payload, ' ')
		}
		rec := &Record{
			Correlation: Correlation{
				ID:        fmt.Sprintf("rec-%d", i),
				PaymentID: fmt.Sprintf("pay-%d", i),
				Timestamp: opts.Now().UTC().Format(time.RFC3339),
			},
			Credential: Credential{
				IssuerPublicKey: signer.PublicKey.EncodeBase64(),
				TokenPreimage:   t,
				Payload:         payload,
				Signature:       sig,
				Value:           opts.Value,
			},
		}
		line, err := enc.Encode(rec)
		if err != nil {
			return nil, err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return nil, errors.Wrap(err, "failed writing sample")
		}
		switch {
		case i < tampered:
			s.Tampered = append(s.Tampered, rec.ID)
		case i < tampered+unknown:
			s.Unknown = append(s.Unknown, rec.ID)
		default:
			s.Valid = append(s.Valid, rec.ID)
		}
	}
	return s, errors.Wrap(bw.Flush(), "failed flushing sample")
}
