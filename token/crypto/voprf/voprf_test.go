/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package voprf_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningKeyEncoding(t *testing.T) {
	key, err := voprf.GenerateSigningKey(rand.Reader)
	require.NoError(t, err)

	decoded, err := voprf.DecodeSigningKeyBase64(key.EncodeBase64())
	require.NoError(t, err)
	assert.Equal(t, key.Encode(), decoded.Encode())
	assert.True(t, key.PublicKey.Equal(decoded.PublicKey))

	pk, err := voprf.DecodePublicKeyBase64(key.PublicKey.EncodeBase64())
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pk))
	assert.Equal(t, key.PublicKey.EncodeBase64(), pk.EncodeBase64())
}

func TestDecodeSigningKeyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cause error
	}{
		{name: "not base64", input: "%%%", cause: voprf.ErrInvalidEncoding},
		{name: "too short", input: base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), cause: voprf.ErrInvalidLength},
		{name: "non canonical scalar", input: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xff}, 32)), cause: voprf.ErrInvalidEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := voprf.DecodeSigningKeyBase64(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.cause), "unexpected error %v", err)
		})
	}
}

func TestVerifyRedemption(t *testing.T) {
	key, err := voprf.GenerateSigningKey(rand.Reader)
	require.NoError(t, err)
	other, err := voprf.GenerateSigningKey(rand.Reader)
	require.NoError(t, err)
	preimage, err := voprf.GenerateTokenPreimage(rand.Reader)
	require.NoError(t, err)

	payload := []byte("POST /v1/votes,channel=abc")
	sig := key.RederiveUnblindedToken(preimage).DeriveVerificationKey().Sign(payload)

	assert.True(t, voprf.VerifyRedemption(key, preimage, payload, sig))
	assert.False(t, voprf.VerifyRedemption(key, preimage, []byte("POST /v1/votes,channel=abd"), sig))
	assert.False(t, voprf.VerifyRedemption(other, preimage, payload, sig))

	var flipped voprf.VerificationSignature
	copy(flipped[:], sig[:])
	flipped[0] ^= 0x01
	assert.False(t, voprf.VerifyRedemption(key, preimage, payload, flipped))
}

func TestDerivationIsDeterministic(t *testing.T) {
	key, err := voprf.GenerateSigningKey(rand.Reader)
	require.NoError(t, err)
	preimage, err := voprf.GenerateTokenPreimage(rand.Reader)
	require.NoError(t, err)

	a := key.RederiveUnblindedToken(preimage).DeriveVerificationKey()
	b := key.RederiveUnblindedToken(preimage).DeriveVerificationKey()
	assert.Equal(t, a, b)
}

func TestFixedLengthEncodings(t *testing.T) {
	preimage, err := voprf.GenerateTokenPreimage(rand.Reader)
	require.NoError(t, err)
	decoded, err := voprf.DecodeTokenPreimageBase64(preimage.EncodeBase64())
	require.NoError(t, err)
	assert.Equal(t, preimage, decoded)

	_, err = voprf.DecodeTokenPreimageBase64(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	assert.True(t, errors.Is(err, voprf.ErrInvalidLength))

	_, err = voprf.DecodeVerificationSignatureBase64("not-base64!")
	assert.True(t, errors.Is(err, voprf.ErrInvalidEncoding))
}

func TestSignKnownAnswer(t *testing.T) {
	var vk voprf.VerificationKey
	for i := range vk {
		vk[i] = byte(i)
	}
	message := []byte(`{"recipient":"sample-0","amount":1}`)

	sig := vk.Sign(message)
	assert.Equal(t, "de12d8a2450231eceffa8d6c59f532f419cc0ad1377a5ffa4976a0a078ce07936c76e00c610ea0d031d67d95bf68df641645b6bfb9a9372e1c10fbc53f5468ad", hex.EncodeToString(sig[:]))

	// the MAC covers the payload and nothing else
	mac := hmac.New(sha512.New, vk[:])
	mac.Write(message)
	assert.Equal(t, mac.Sum(nil), sig[:])
	assert.True(t, vk.Verify(sig, message))
}
