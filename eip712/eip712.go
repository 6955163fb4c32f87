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

// Package eip712 implements the typed, domain-separated message digests used
// by every controller authorization, and recovery of the signing identity
// from 65-byte secp256k1 signatures.
//
// The controller signs a single envelope type:
//
//	Authorization(address emitter,address grantee,bytes32 hash)
//
// where hash commits to the exact action and payment terms, so a captured
// signature can never be replayed against different prices.
package eip712

import (
	"encoding/binary"

	"github.com/ticket721/t721controller/ident"
	"golang.org/x/crypto/sha3"
)

// Domain separates signatures produced for one controller deployment from
// every other deployment and chain.
type Domain struct {
	Name     string
	Version  string
	ChainID  uint64
	Contract ident.Address
}

// Authorization is the envelope every controller authorization is signed
// under. Emitter is the key expected to have signed, Grantee the identity
// the authorization is issued to, Hash the action commitment.
type Authorization struct {
	Emitter ident.Address
	Grantee ident.Address
	Hash    ident.Hash
}

var (
	domainTypeHash = Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	authTypeHash   = Keccak256([]byte("Authorization(address emitter,address grantee,bytes32 hash)"))
)

// Keccak256 hashes data with the ledger's native digest function.
func Keccak256(data ...[]byte) ident.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h ident.Hash
	d.Sum(h[:0])
	return h
}

// Separator returns the domain separator hash.
func (d Domain) Separator() ident.Hash {
	name := Keccak256([]byte(d.Name))
	version := Keccak256([]byte(d.Version))
	return Keccak256(
		domainTypeHash[:],
		name[:],
		version[:],
		leftPadUint64(d.ChainID),
		leftPadAddress(d.Contract),
	)
}

// Digest returns the final signable digest for an authorization under this
// domain: keccak(0x19 ‖ 0x01 ‖ separator ‖ hashStruct(auth)).
func (d Domain) Digest(auth Authorization) ident.Hash {
	sep := d.Separator()
	structHash := Keccak256(
		authTypeHash[:],
		leftPadAddress(auth.Emitter),
		leftPadAddress(auth.Grantee),
		auth.Hash[:],
	)
	return Keccak256([]byte{0x19, 0x01}, sep[:], structHash[:])
}

func leftPadAddress(a ident.Address) []byte {
	out := make([]byte, 32)
	copy(out[32-ident.AddressLen:], a[:])
	return out
}

func leftPadUint64(v uint64) []byte {
	out := make([]byte, 32)
	binary.BigEndian.PutUint64(out[24:], v)
	return out
}
