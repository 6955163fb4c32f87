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

// Package ident defines the primitive identity types shared by every
// controller component: 20-byte addresses, 32-byte hashes and fixed-width
// labels. They mirror the host ledger's native account and word sizes.
package ident

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// AddressLen is the byte length of an account or currency address.
	AddressLen = 20
	// HashLen is the byte length of a ledger word and of every derived id.
	HashLen = 32
)

// Address identifies an account, a currency contract or a signing key.
type Address [AddressLen]byte

// Hash is a 32-byte digest, used for group ids and authorization digests.
type Hash [HashLen]byte

// Bytes32 is a fixed-width label, used for category and attachment names.
type Bytes32 [32]byte

var (
	// ZeroAddress is the absent-address marker. A category with a zero
	// authorization key runs an open sale.
	ZeroAddress = Address{}

	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidHash    = errors.New("invalid hash")
)

// AddressFromBytes copies b into an Address. It fails if b is not exactly
// AddressLen bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLen {
		return a, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(b), AddressLen)
	}
	copy(a[:], b)
	return a, nil
}

// ParseAddress decodes a hex address, with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	b, err := parseHex(s, AddressLen)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %s", ErrInvalidAddress, s)
	}
	return AddressFromBytes(b)
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) Bytes() []byte {
	return bytes.Clone(a[:])
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// HashFromBytes copies b into a Hash. It fails if b is not exactly HashLen
// bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLen {
		return h, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidHash, len(b), HashLen)
	}
	copy(h[:], b)
	return h, nil
}

// ParseHash decodes a hex hash, with or without a 0x prefix.
func ParseHash(s string) (Hash, error) {
	b, err := parseHex(s, HashLen)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %s", ErrInvalidHash, s)
	}
	return HashFromBytes(b)
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Bytes() []byte {
	return bytes.Clone(h[:])
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Label builds a Bytes32 from a short string, left-aligned and zero padded
// the way the wire format stores category names. Strings longer than 32
// bytes are rejected.
func Label(s string) (Bytes32, error) {
	var b Bytes32
	if len(s) > len(b) {
		return b, fmt.Errorf("label %q exceeds 32 bytes", s)
	}
	copy(b[:], s)
	return b, nil
}

// MustLabel is Label for compile-time constants. It panics on oversized
// input and is meant for tests and fixtures.
func MustLabel(s string) Bytes32 {
	b, err := Label(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

func (b Bytes32) Bytes() []byte {
	return bytes.Clone(b[:])
}

// String trims the zero padding, rendering the label as the short string it
// was built from.
func (b Bytes32) String() string {
	return string(bytes.TrimRight(b[:], "\x00"))
}

func parseHex(s string, want int) ([]byte, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != want {
		return nil, fmt.Errorf("got %d bytes, want %d", len(b), want)
	}
	return b, nil
}
