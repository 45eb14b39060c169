/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package voprf implements the server side of the challenge bypass token scheme over ristretto255:
// issuer signing keys, token preimages, unblinded token re-derivation and the HMAC-SHA512
// verification signatures that bind a redeemed token to a request payload.
package voprf

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"io"

	"github.com/gtank/ristretto255"
	"github.com/pkg/errors"
)

const (
	SigningKeyLength            = 32
	PublicKeyLength             = 32
	TokenPreimageLength         = 64
	VerificationKeyLength       = 64
	VerificationSignatureLength = 64

	uniformBytesLength = 64
)

var deriveKeyLabel = []byte("hash_derive_key")

var (
	ErrInvalidLength   = errors.New("invalid length")
	ErrInvalidEncoding = errors.New("invalid encoding")
)

// SigningKey is an issuer secret scalar together with its public key.
type SigningKey struct {
	k         *ristretto255.Scalar
	PublicKey *PublicKey
}

// GenerateSigningKey draws a fresh issuer key from the given source of randomness.
func GenerateSigningKey(rand io.Reader) (*SigningKey, error) {
	var seed [uniformBytesLength]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, errors.Wrap(err, "failed reading randomness")
	}
	return newSigningKey(ristretto255.NewScalar().FromUniformBytes(seed[:])), nil
}

// DecodeSigningKey decodes the canonical 32-byte encoding of a signing key.
func DecodeSigningKey(raw []byte) (*SigningKey, error) {
	if len(raw) != SigningKeyLength {
		return nil, errors.Wrapf(ErrInvalidLength, "signing key must be %d bytes, got %d", SigningKeyLength, len(raw))
	}
	k := ristretto255.NewScalar()
	if err := k.Decode(raw); err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}
	return newSigningKey(k), nil
}

// DecodeSigningKeyBase64 decodes a standard base64 signing key.
func DecodeSigningKeyBase64(s string) (*SigningKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}
	return DecodeSigningKey(raw)
}

func newSigningKey(k *ristretto255.Scalar) *SigningKey {
	return &SigningKey{
		k:         k,
		PublicKey: &PublicKey{point: ristretto255.NewElement().ScalarBaseMult(k)},
	}
}

func (k *SigningKey) Encode() []byte {
	return k.k.Encode(make([]byte, 0, SigningKeyLength))
}

func (k *SigningKey) EncodeBase64() string {
	return base64.StdEncoding.EncodeToString(k.Encode())
}

// RederiveUnblindedToken recomputes the unblinded token the holder obtained for preimage t.
func (k *SigningKey) RederiveUnblindedToken(t TokenPreimage) *UnblindedToken {
	return &UnblindedToken{
		t: t,
		w: ristretto255.NewElement().ScalarMult(k.k, t.point()),
	}
}

// PublicKey is the issuer commitment K = kG.
type PublicKey struct {
	point *ristretto255.Element
}

// DecodePublicKeyBase64 decodes a compressed ristretto point.
func DecodePublicKeyBase64(s string) (*PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}
	if len(raw) != PublicKeyLength {
		return nil, errors.Wrapf(ErrInvalidLength, "public key must be %d bytes, got %d", PublicKeyLength, len(raw))
	}
	p := ristretto255.NewElement()
	if err := p.Decode(raw); err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}
	return &PublicKey{point: p}, nil
}

func (p *PublicKey) Encode() []byte {
	return p.point.Encode(make([]byte, 0, PublicKeyLength))
}

func (p *PublicKey) EncodeBase64() string {
	return base64.StdEncoding.EncodeToString(p.Encode())
}

func (p *PublicKey) Equal(other *PublicKey) bool {
	return other != nil && p.point.Equal(other.point) == 1
}

// TokenPreimage is the random value t the holder unblinds and later redeems.
type TokenPreimage [TokenPreimageLength]byte

func GenerateTokenPreimage(rand io.Reader) (TokenPreimage, error) {
	var t TokenPreimage
	if _, err := io.ReadFull(rand, t[:]); err != nil {
		return t, errors.Wrap(err, "failed reading randomness")
	}
	return t, nil
}

func DecodeTokenPreimageBase64(s string) (TokenPreimage, error) {
	var t TokenPreimage
	err := decodeFixed(s, t[:])
	return t, err
}

func (t TokenPreimage) EncodeBase64() string {
	return base64.StdEncoding.EncodeToString(t[:])
}

// point maps the preimage onto the group with SHA-512 and the ristretto255 one-way map.
func (t TokenPreimage) point() *ristretto255.Element {
	h := sha512.Sum512(t[:])
	return ristretto255.NewElement().FromUniformBytes(h[:])
}

// UnblindedToken is the pair (t, W = kT).
type UnblindedToken struct {
	t TokenPreimage
	w *ristretto255.Element
}

// DeriveVerificationKey hashes the unblinded token into the shared MAC key.
func (u *UnblindedToken) DeriveVerificationKey() VerificationKey {
	h := sha512.New()
	h.Write(deriveKeyLabel)
	h.Write(u.t[:])
	h.Write(u.w.Encode(make([]byte, 0, PublicKeyLength)))

	var vk VerificationKey
	copy(vk[:], h.Sum(nil))
	return vk
}

// VerificationKey is the MAC key shared by the token holder and the issuer.
type VerificationKey [VerificationKeyLength]byte

// Sign binds message to the token. Only the holder signs in production; the issuer side uses it
// to recompute the expected signature.
func (vk VerificationKey) Sign(message []byte) VerificationSignature {
	mac := hmac.New(sha512.New, vk[:])
	mac.Write(message)

	var sig VerificationSignature
	copy(sig[:], mac.Sum(nil))
	return sig
}

// Verify checks sig in constant time.
func (vk VerificationKey) Verify(sig VerificationSignature, message []byte) bool {
	expected := vk.Sign(message)
	return hmac.Equal(expected[:], sig[:])
}

// VerificationSignature is the MAC the holder attaches to a redemption.
type VerificationSignature [VerificationSignatureLength]byte

func DecodeVerificationSignatureBase64(s string) (VerificationSignature, error) {
	var sig VerificationSignature
	err := decodeFixed(s, sig[:])
	return sig, err
}

func (s VerificationSignature) EncodeBase64() string {
	return base64.StdEncoding.EncodeToString(s[:])
}

func decodeFixed(s string, out []byte) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return errors.Wrap(ErrInvalidEncoding, err.Error())
	}
	if len(raw) != len(out) {
		return errors.Wrapf(ErrInvalidLength, "expected %d bytes, got %d", len(out), len(raw))
	}
	copy(out, raw)
	return nil
}

// VerifyRedemption reports whether sig binds payload to the token t issued under key.
func VerifyRedemption(key *SigningKey, t TokenPreimage, payload []byte, sig VerificationSignature) bool {
	return key.RederiveUnblindedToken(t).DeriveVerificationKey().Verify(sig, payload)
}
