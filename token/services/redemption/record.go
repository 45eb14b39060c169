/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package redemption decodes the redemption export: one record per line, correlation columns and
// an escaped JSON credential column.
package redemption

import (
	"fmt"
	"strings"

	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrFieldCount        = errors.New("unexpected number of fields")
	ErrMissingCredential = errors.New("credential column is missing required values")
)

// Correlation identifies a record in the ledgers.
type Correlation struct {
	ID        string
	PaymentID string
	Timestamp string
}

// Credential is the token redemption carried by a record.
type Credential struct {
	// IssuerPublicKey is the base64 public key the holder claims the token was issued under.
	IssuerPublicKey string
	TokenPreimage   voprf.TokenPreimage
	Payload         []byte
	Signature       voprf.VerificationSignature
	// Value is accounting data only; it never affects verification.
	Value decimal.Decimal
}

type Record struct {
	Correlation
	Credential Credential
}

// FormatError is returned for a line that cannot be decoded. Correlation holds whatever
// correlation columns could be recovered so the line can still be reported.
type FormatError struct {
	Line        int
	Correlation Correlation
	Err         error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid record format at line %d: %v", e.Line, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

type credentialColumn struct {
	PublicKey  string          `json:"publicKey"`
	Credential credentialJSON  `json:"credential"`
	Value      decimal.Decimal `json:"value"`
}

type credentialJSON struct {
	T         string `json:"t"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// Columns gives the position of every field in a line.
type Columns struct {
	ID         int
	PaymentID  int
	Credential int
	Timestamp  int
	Count      int
}

// DefaultColumns is the header-less layout: id, payment_id, credential, timestamp.
var DefaultColumns = Columns{ID: 0, PaymentID: 1, Credential: 2, Timestamp: 3, Count: 4}

const (
	idHeader         = "id"
	paymentIDHeader  = "payment_id"
	credentialHeader = "credential"
	timestampHeader  = "timestamp"
)

type Options struct {
	Delimiter       byte
	NestedDelimiter byte
	Escape          byte
	Columns         Columns
}

func DefaultOptions() Options {
	return Options{Delimiter: ';', NestedDelimiter: ',', Escape: '\\', Columns: DefaultColumns}
}

// Decoder turns lines into records. It holds no state besides its options and can be shared.
type Decoder struct {
	opts  Options
	codec Codec
}

func NewDecoder(opts Options) *Decoder {
	if opts.Columns.Count == 0 {
		opts.Columns = DefaultColumns
	}
	return &Decoder{opts: opts, codec: Codec{Delimiter: opts.NestedDelimiter, Esc: opts.Escape}}
}

// ParseHeader maps the columns of a header line by name.
func (d *Decoder) ParseHeader(line string) (Columns, error) {
	fields, err := splitFields(line, d.opts.Delimiter, d.opts.Escape)
	if err != nil {
		return Columns{}, err
	}
	c := Columns{ID: -1, PaymentID: -1, Credential: -1, Timestamp: -1, Count: len(fields)}
	for i, f := range fields {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case idHeader:
			c.ID = i
		case paymentIDHeader:
			c.PaymentID = i
		case credentialHeader:
			c.Credential = i
		case timestampHeader:
			c.Timestamp = i
		}
	}
	for name, idx := range map[string]int{
		idHeader: c.ID, paymentIDHeader: c.PaymentID, credentialHeader: c.Credential, timestampHeader: c.Timestamp,
	} {
		if idx < 0 {
			return Columns{}, errors.Errorf("header misses column [%s]", name)
		}
	}
	return c, nil
}

// WithColumns returns a decoder sharing the options of d but using the given layout.
func (d *Decoder) WithColumns(c Columns) *Decoder {
	opts := d.opts
	opts.Columns = c
	return NewDecoder(opts)
}

// Decode parses one line. Errors are *FormatError with Line left to the caller.
func (d *Decoder) Decode(line string) (*Record, error) {
	fields, err := splitFields(line, d.opts.Delimiter, d.opts.Escape)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	cols := d.opts.Columns
	if len(fields) != cols.Count {
		return nil, &FormatError{
			Correlation: partialCorrelation(fields, cols),
			Err:         errors.Wrapf(ErrFieldCount, "expected %d, got %d", cols.Count, len(fields)),
		}
	}
	r := &Record{Correlation: partialCorrelation(fields, cols)}
	if r.Credential, err = d.decodeCredential(fields[cols.Credential]); err != nil {
		return nil, &FormatError{Correlation: r.Correlation, Err: err}
	}
	return r, nil
}

func (d *Decoder) decodeCredential(field string) (Credential, error) {
	var col credentialColumn
	if err := json.Unmarshal([]byte(d.codec.Unescape(field)), &col); err != nil {
		return Credential{}, errors.Wrap(err, "failed to unmarshal credential column")
	}
	if len(col.PublicKey) == 0 || len(col.Credential.T) == 0 || len(col.Credential.Signature) == 0 {
		return Credential{}, ErrMissingCredential
	}
	preimage, err := voprf.DecodeTokenPreimageBase64(col.Credential.T)
	if err != nil {
		return Credential{}, errors.WithMessage(err, "invalid token preimage")
	}
	sig, err := voprf.DecodeVerificationSignatureBase64(col.Credential.Signature)
	if err != nil {
		return Credential{}, errors.WithMessage(err, "invalid verification signature")
	}
	return Credential{
		IssuerPublicKey: col.PublicKey,
		TokenPreimage:   preimage,
		Payload:         []byte(col.Credential.Payload),
		Signature:       sig,
		Value:           col.Value,
	}, nil
}

func partialCorrelation(fields []string, cols Columns) Correlation {
	get := func(i int) string {
		if i >= 0 && i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return Correlation{ID: get(cols.ID), PaymentID: get(cols.PaymentID), Timestamp: get(cols.Timestamp)}
}

// Encode renders r in the layout of d. It is the inverse of Decode.
func (d *Decoder) Encode(r *Record) (string, error) {
	raw, err := json.Marshal(struct {
		PublicKey  string              `json:"publicKey"`
		Credential credentialJSON      `json:"credential"`
		Value      jsoniter.RawMessage `json:"value"`
	}{
		PublicKey: r.Credential.IssuerPublicKey,
		Credential: credentialJSON{
			T:         r.Credential.TokenPreimage.EncodeBase64(),
			Payload:   string(r.Credential.Payload),
			Signature: r.Credential.Signature.EncodeBase64(),
		},
		Value: jsoniter.RawMessage(r.Credential.Value.String()),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal credential column")
	}

	cols := d.opts.Columns
	fields := make([]string, cols.Count)
	fields[cols.ID] = r.ID
	fields[cols.PaymentID] = r.PaymentID
	fields[cols.Timestamp] = r.Timestamp
	fields[cols.Credential] = d.quote(d.codec.Escape(string(raw)))
	for i, f := range fields {
		if i != cols.Credential && strings.ContainsAny(f, string([]byte{d.opts.Delimiter, d.opts.Escape, quote})) {
			return "", errors.Errorf("field %d [%s] cannot be encoded without quoting", i, f)
		}
	}
	return joinFields(fields, d.opts.Delimiter), nil
}

// quote wraps a credential field that still contains the outer delimiter after escaping.
func (d *Decoder) quote(field string) string {
	if strings.IndexByte(field, d.opts.Delimiter) < 0 && (len(field) == 0 || field[0] != quote) {
		return field
	}
	return string(quote) + strings.ReplaceAll(field, string(quote), `""`) + string(quote)
}
