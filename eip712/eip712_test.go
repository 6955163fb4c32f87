// Copyright 2025 Ticket721 SAS

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     https://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eip712_test

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
)

func testDomain() eip712.Domain {
	return eip712.Domain{
		Name:     "T721 Controller",
		Version:  "0",
		ChainID:  1,
		Contract: mustAddr("0x00000000000000000000000000000000000000aa"),
	}
}

func mustAddr(s string) ident.Address {
	a, err := ident.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func TestKeccak256KnownVector(t *testing.T) {
	// keccak256("") from the reference implementation.
	h := eip712.Keccak256(nil)
	require.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", h.String())
}

func TestSignAndRecover(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	domain := testDomain()
	auth := eip712.Authorization{
		Emitter: eip712.SignerAddress(key),
		Grantee: mustAddr("0x00000000000000000000000000000000000000bb"),
		Hash:    eip712.Keccak256([]byte("payload")),
	}

	digest := domain.Digest(auth)
	sig := eip712.Sign(key, digest)
	require.Len(t, sig, eip712.SignatureLen)

	got, err := eip712.Recover(digest, sig)
	require.NoError(t, err)
	require.Equal(t, eip712.SignerAddress(key), got)
}

func TestRecoverWrongSigner(t *testing.T) {
	alice, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	eve, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	digest := testDomain().Digest(eip712.Authorization{
		Emitter: eip712.SignerAddress(alice),
		Hash:    eip712.Keccak256([]byte("payload")),
	})

	got, err := eip712.Recover(digest, eip712.Sign(eve, digest))
	require.NoError(t, err)
	require.NotEqual(t, eip712.SignerAddress(alice), got)
}

func TestRecoverDigestBindsDomain(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	auth := eip712.Authorization{
		Emitter: eip712.SignerAddress(key),
		Hash:    eip712.Keccak256([]byte("payload")),
	}

	d1 := testDomain()
	d2 := testDomain()
	d2.ChainID = 5

	sig := eip712.Sign(key, d1.Digest(auth))

	// The same signature against a different chain's digest recovers a
	// different identity.
	got, err := eip712.Recover(d2.Digest(auth), sig)
	require.NoError(t, err)
	require.NotEqual(t, eip712.SignerAddress(key), got)
}

func TestSeparatorCommitsToEveryDomainField(t *testing.T) {
	base := testDomain()

	variants := map[string]eip712.Domain{
		"name":     {Name: "Other", Version: base.Version, ChainID: base.ChainID, Contract: base.Contract},
		"version":  {Name: base.Name, Version: "1", ChainID: base.ChainID, Contract: base.Contract},
		"chain id": {Name: base.Name, Version: base.Version, ChainID: 5, Contract: base.Contract},
		"contract": {Name: base.Name, Version: base.Version, ChainID: base.ChainID, Contract: mustAddr("0x00000000000000000000000000000000000000cc")},
	}
	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			require.NotEqual(t, base.Separator(), variant.Separator())
		})
	}
}

func TestSignatureDoesNotSurviveVersionBump(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	auth := eip712.Authorization{
		Emitter: eip712.SignerAddress(key),
		Hash:    eip712.Keccak256([]byte("payload")),
	}

	d1 := testDomain()
	d2 := testDomain()
	d2.Version = "1"

	sig := eip712.Sign(key, d1.Digest(auth))
	got, err := eip712.Recover(d2.Digest(auth), sig)
	require.NoError(t, err)
	require.NotEqual(t, eip712.SignerAddress(key), got)
}

func TestRecoverMalformedLength(t *testing.T) {
	_, err := eip712.Recover(ident.Hash{}, make([]byte, 64))
	require.ErrorIs(t, err, eip712.ErrInvalidSignatureLength)

	_, err = eip712.Recover(ident.Hash{}, make([]byte, 66))
	require.ErrorIs(t, err, eip712.ErrInvalidSignatureLength)
}

func TestSplit(t *testing.T) {
	blob := make([]byte, 3*eip712.SignatureLen)
	sigs, err := eip712.Split(blob, 3)
	require.NoError(t, err)
	require.Len(t, sigs, 3)
	require.True(t, eip712.IsZero(sigs[0]))

	_, err = eip712.Split(blob[:len(blob)-1], 3)
	require.ErrorIs(t, err, eip712.ErrInvalidSignatureLength)

	_, err = eip712.Split(blob, 2)
	require.ErrorIs(t, err, eip712.ErrInvalidSignatureLength)
}

func TestIsZero(t *testing.T) {
	sig := make([]byte, eip712.SignatureLen)
	require.True(t, eip712.IsZero(sig))
	sig[10] = 1
	require.False(t, eip712.IsZero(sig))
}
