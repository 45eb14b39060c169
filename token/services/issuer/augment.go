/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"encoding/csv"
	"io"

	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	"github.com/pkg/errors"
)

// Augment copies an issuer dump from r to w, appending to every row the public key derived from
// the signing key found in column keyColumn. The dump has no header. It returns the number of rows
// written.
//
// The input contains private keys: callers must not leave copies of it around.
func Augment(r io.Reader, w io.Writer, keyColumn int) (int, error) {
	if keyColumn < 0 {
		return 0, errors.Errorf("invalid key column [%d]", keyColumn)
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	writer := csv.NewWriter(w)

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, errors.Wrapf(err, "failed reading row %d", rows+1)
		}
		if keyColumn >= len(record) {
			return rows, errors.Errorf("row %d has %d columns, key column is %d", rows+1, len(record), keyColumn)
		}
		key, err := voprf.DecodeSigningKeyBase64(record[keyColumn])
		if err != nil {
			return rows, errors.Wrapf(err, "failed to decode the private key of row %d", rows+1)
		}
		if err := writer.Write(append(record, key.PublicKey.EncodeBase64())); err != nil {
			return rows, errors.Wrapf(err, "failed writing row %d", rows+1)
		}
		rows++
	}
	writer.Flush()
	return rows, errors.Wrap(writer.Error(), "failed flushing output")
}
