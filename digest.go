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

package controller

import (
	"encoding/binary"
	"fmt"

	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/payment"
)

// Every authorization binds the exact payment terms: the hash committed to
// covers the action tag, the packed price table, the group or category
// context, the target-specific field and the one-time code. A captured
// signature therefore cannot be replayed against a different price.

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// priceTable canonically packs a payment list: per item the currency, the
// gross amount and the declared fee.
func priceTable(items []payment.Item) []byte {
	buf := make([]byte, 0, len(items)*36)
	for _, it := range items {
		buf = append(buf, it.Currency[:]...)
		buf = append(buf, be64(it.Amount)...)
		buf = append(buf, be64(it.Fee)...)
	}
	return buf
}

// MintBinding commits a mint authorization to the price table, the
// category and the one-time code. Authorizers sign
// AuthorizationDigest(key, ticketOwner, MintBinding(...)).
func MintBinding(items []payment.Item, groupID ident.Hash, categoryName ident.Bytes32, code uint64) ident.Hash {
	return eip712.Keccak256(
		[]byte("mint"),
		priceTable(items),
		groupID[:],
		categoryName[:],
		be64(code),
	)
}

// AttachBinding commits an attachment authorization to the price table,
// the category, the named extra and its amount, and the one-time code.
func AttachBinding(items []payment.Item, groupID ident.Hash, categoryName, attachmentName ident.Bytes32, amount, code uint64) ident.Hash {
	return eip712.Keccak256(
		[]byte("attach"),
		priceTable(items),
		groupID[:],
		categoryName[:],
		attachmentName[:],
		be64(amount),
		be64(code),
	)
}

// WithdrawBinding commits a withdrawal authorization to the exact
// currency, amount and destination.
func WithdrawBinding(groupID ident.Hash, cur ident.Address, amount uint64, target ident.Address, code uint64) ident.Hash {
	return eip712.Keccak256(
		[]byte("withdraw"),
		groupID[:],
		cur[:],
		be64(amount),
		target[:],
		be64(code),
	)
}

// AuthorizationDigest is the digest an emitter signs to grant hash to
// grantee under this controller's domain.
func (c *Controller) AuthorizationDigest(emitter, grantee ident.Address, hash ident.Hash) ident.Hash {
	return c.domain.Digest(eip712.Authorization{
		Emitter: emitter,
		Grantee: grantee,
		Hash:    hash,
	})
}

// verifyAuthorization checks that sig is emitter's signature over the
// domain-bound envelope granting hash to grantee.
func (c *Controller) verifyAuthorization(emitter, grantee ident.Address, hash ident.Hash, sig []byte) error {
	digest := c.AuthorizationDigest(emitter, grantee, hash)
	signer, err := eip712.Recover(digest, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAuthorization, err)
	}
	if signer != emitter {
		return fmt.Errorf("%w: recovered %s, want %s", ErrInvalidAuthorization, signer, emitter)
	}
	return nil
}
