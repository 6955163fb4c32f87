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

package eip712

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ticket721/t721controller/ident"
)

// SignatureLen is the width of one r‖s‖v signature.
const SignatureLen = 65

var (
	// ErrInvalidSignatureLength indicates a signature blob that is neither
	// one signature nor an exact multiple of SignatureLen. It is distinct
	// from ErrInvalidSignature so callers can tell malformed input apart
	// from a wrong signer.
	ErrInvalidSignatureLength = errors.New("invalid signature length")

	// ErrInvalidSignature indicates a well-formed signature that does not
	// recover to any identity.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Recover returns the identity that signed digest. sig is r‖s‖v with v one
// of 0, 1, 27 or 28.
func Recover(digest ident.Hash, sig []byte) (ident.Address, error) {
	if len(sig) != SignatureLen {
		return ident.Address{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSignatureLength, len(sig), SignatureLen)
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return ident.Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig[64])
	}

	// The recovery routine wants the recovery code first.
	compact := make([]byte, SignatureLen)
	compact[0] = v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return ident.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return pubKeyAddress(pub), nil
}

// Split cuts a concatenated signature blob into count signatures. A blob
// whose length is not exactly count*SignatureLen is rejected with
// ErrInvalidSignatureLength.
func Split(blob []byte, count int) ([][]byte, error) {
	if len(blob) != count*SignatureLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d signatures of %d bytes",
			ErrInvalidSignatureLength, len(blob), count, SignatureLen)
	}
	sigs := make([][]byte, count)
	for i := range sigs {
		sigs[i] = blob[i*SignatureLen : (i+1)*SignatureLen]
	}
	return sigs, nil
}

// IsZero reports whether sig is the 65-byte zero filler the packed wire
// format uses for unauthorized items.
func IsZero(sig []byte) bool {
	for _, b := range sig {
		if b != 0 {
			return false
		}
	}
	return true
}

// Sign produces an r‖s‖v signature over digest. It exists for test fixtures
// and off-core authorization tooling; the controller itself only recovers.
func Sign(key *secp256k1.PrivateKey, digest ident.Hash) []byte {
	compact := ecdsa.SignCompact(key, digest[:], false)
	sig := make([]byte, SignatureLen)
	copy(sig[:64], compact[1:])
	sig[64] = compact[0] // 27 or 28
	return sig
}

// SignerAddress returns the on-ledger identity for a private key.
func SignerAddress(key *secp256k1.PrivateKey) ident.Address {
	return pubKeyAddress(key.PubKey())
}

func pubKeyAddress(pub *secp256k1.PublicKey) ident.Address {
	// keccak of the uncompressed point without the 0x04 tag, low 20 bytes.
	raw := pub.SerializeUncompressed()
	h := Keccak256(raw[1:])
	var a ident.Address
	copy(a[:], h[12:])
	return a
}
