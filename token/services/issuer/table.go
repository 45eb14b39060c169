/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuer holds the trust set of a batch run: the issuer signing keys, indexed by the
// public key derived from each of them.
package issuer

import (
	"fmt"
	"sort"

	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	"github.com/hyperledger-labs/redeemverify/token/services/logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("issuer")

var ErrNoKeys = errors.New("no issuer keys supplied")

// KeyDecodeError reports the position of a key that could not be decoded.
// The key material itself is never part of the message.
type KeyDecodeError struct {
	Index int
	Err   error
}

func (e *KeyDecodeError) Error() string {
	return fmt.Sprintf("failed to decode issuer key at index %d: %v", e.Index, e.Err)
}

func (e *KeyDecodeError) Unwrap() error { return e.Err }

// Table maps the base64 public key of an issuer to its signing key.
// It is immutable once NewTable returns and can be read from any number of goroutines.
type Table struct {
	keys map[string]*voprf.SigningKey
}

// NewTable decodes every raw key. A single undecodable key fails the whole construction.
// Supplying the same key twice is harmless: both entries derive the same identifier.
func NewTable(raw []string) (*Table, error) {
	if len(raw) == 0 {
		return nil, ErrNoKeys
	}
	keys := make(map[string]*voprf.SigningKey, len(raw))
	for i, r := range raw {
		key, err := voprf.DecodeSigningKeyBase64(r)
		if err != nil {
			return nil, &KeyDecodeError{Index: i, Err: err}
		}
		id := key.PublicKey.EncodeBase64()
		if _, ok := keys[id]; ok {
			logger.Warnf("issuer key at index %d is a duplicate of [%s]", i, logging.Prefix(id))
			continue
		}
		keys[id] = key
	}
	logger.Debugf("loaded %d issuer keys: %s", len(keys), logging.Keys(keys))
	return &Table{keys: keys}, nil
}

// Get returns the signing key whose derived public key is id.
func (t *Table) Get(id string) (*voprf.SigningKey, bool) {
	k, ok := t.keys[id]
	return k, ok
}

func (t *Table) Len() int {
	return len(t.keys)
}

// IDs returns the sorted public key identifiers.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.keys))
	for id := range t.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
