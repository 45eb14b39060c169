/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"encoding/hex"

	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	"github.com/hyperledger-labs/redeemverify/token/services/redemption"
	"github.com/hyperledger-labs/redeemverify/token/services/utils/cache"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// KeyLookup resolves the issuer a record claims.
type KeyLookup interface {
	Get(id string) (*voprf.SigningKey, bool)
}

// TokenVerifier checks that a signature binds payload to the token t issued under key.
type TokenVerifier interface {
	Verify(key *voprf.SigningKey, t voprf.TokenPreimage, payload []byte, sig voprf.VerificationSignature) (bool, error)
}

// Service verifies tokens and memoises the verification key of every (issuer, preimage) pair.
type Service struct {
	keys cache.Cache[voprf.VerificationKey]
}

func NewService(keys cache.Cache[voprf.VerificationKey]) *Service {
	if keys == nil {
		keys = cache.NewNoCache[voprf.VerificationKey]()
	}
	return &Service{keys: keys}
}

func (s *Service) Verify(key *voprf.SigningKey, t voprf.TokenPreimage, payload []byte, sig voprf.VerificationSignature) (bool, error) {
	vk, _, err := s.keys.GetOrLoad(cacheKey(key, t), func() (voprf.VerificationKey, error) {
		return key.RederiveUnblindedToken(t).DeriveVerificationKey(), nil
	})
	if err != nil {
		return false, errors.WithMessage(err, "failed deriving verification key")
	}
	return vk.Verify(sig, payload), nil
}

func (s *Service) CacheStats() cache.Stats {
	return s.keys.Stats()
}

func cacheKey(key *voprf.SigningKey, t voprf.TokenPreimage) string {
	h, _ := blake2b.New256(nil)
	h.Write(key.PublicKey.Encode())
	h.Write(t[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Check resolves the issuer of rec and verifies its credential.
func Check(keys KeyLookup, v TokenVerifier, rec *redemption.Record) (Outcome, error) {
	o := Outcome{Correlation: rec.Correlation, Value: rec.Credential.Value}
	key, ok := keys.Get(rec.Credential.IssuerPublicKey)
	if !ok {
		o.Reason = UnknownIssuer
		return o, nil
	}
	valid, err := v.Verify(key, rec.Credential.TokenPreimage, rec.Credential.Payload, rec.Credential.Signature)
	if err != nil {
		return o, err
	}
	if !valid {
		o.Reason = SignatureMismatch
	}
	return o, nil
}
