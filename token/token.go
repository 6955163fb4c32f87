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

// Package token defines the collaborator boundary of the controller core:
// fungible assets moved by allowance or by relayed authorization, and the
// non-fungible ticket registry. The controller never implements these
// standards itself; it consumes whatever the host ledger binds here.
package token

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
)

var (
	// ErrInsufficientBalance indicates the source account cannot cover the
	// transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance indicates the spender was not approved for
	// the transfer amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrUnknownToken indicates a currency address the directory cannot
	// resolve, or resolves to the wrong transfer kind.
	ErrUnknownToken = errors.New("unknown token")

	// ErrUnknownTicket indicates a ticket id the registry never minted.
	ErrUnknownTicket = errors.New("unknown ticket")

	// ErrInvalidRelay indicates a relayed transfer whose signature or nonce
	// did not validate.
	ErrInvalidRelay = errors.New("invalid relayed transfer")
)

// Fungible is the allowance-based transfer collaborator.
type Fungible interface {
	BalanceOf(ctx context.Context, owner ident.Address) (uint64, error)
	Allowance(ctx context.Context, owner, spender ident.Address) (uint64, error)
	// TransferFrom moves funds from an account that approved spender.
	TransferFrom(ctx context.Context, spender, from, to ident.Address, amount uint64) error
	// Transfer moves an account's own funds.
	Transfer(ctx context.Context, from, to ident.Address, amount uint64) error
}

// Relayed is a fungible asset whose transfers can also be authorized by an
// off-ledger payer signature instead of a prior approval.
type Relayed interface {
	Fungible
	TransferWithAuthorization(ctx context.Context, transfer RelayedTransfer) error
}

// RelayedTransfer is a signature-authorized transfer order.
type RelayedTransfer struct {
	Signer    ident.Address
	Relayer   ident.Address
	To        ident.Address
	Amount    uint64
	Nonce     uint64
	GasLimit  uint64
	GasPrice  uint64
	Reward    uint64
	Signature []byte
}

// Digest is the commitment the signer authorizes: it binds the currency
// contract, destination, amount and the relay economics, so a relayer can
// neither redirect nor re-price the transfer.
func (rt RelayedTransfer) Digest(currency ident.Address) ident.Hash {
	var nums [5 * 8]byte
	binary.BigEndian.PutUint64(nums[0:], rt.Amount)
	binary.BigEndian.PutUint64(nums[8:], rt.Nonce)
	binary.BigEndian.PutUint64(nums[16:], rt.GasLimit)
	binary.BigEndian.PutUint64(nums[24:], rt.GasPrice)
	binary.BigEndian.PutUint64(nums[32:], rt.Reward)
	return eip712.Keccak256(
		[]byte("relayed-transfer"),
		currency[:],
		rt.Signer[:],
		rt.Relayer[:],
		rt.To[:],
		nums[:],
	)
}

// Registry is the non-fungible ticket collaborator. Tickets are minted with
// their group and category affiliation so attachment flows can resolve the
// rules that govern them later.
type Registry interface {
	// Mint issues a new ticket to owner and returns its id.
	Mint(ctx context.Context, owner ident.Address, group ident.Hash, category uint32) (uint64, error)
	// Burn destroys a ticket. The controller calls it only to revert
	// tickets issued by a batch that failed partway.
	Burn(ctx context.Context, ticketID uint64) error
	OwnerOf(ctx context.Context, ticketID uint64) (ident.Address, error)
	BalanceOf(ctx context.Context, owner ident.Address) (uint64, error)
	// Affiliation returns the group and category a ticket was minted under.
	Affiliation(ctx context.Context, ticketID uint64) (ident.Hash, uint32, error)
}

// Directory resolves currency addresses to their transfer collaborators.
type Directory interface {
	Fungible(ctx context.Context, currency ident.Address) (Fungible, error)
	Relayed(ctx context.Context, currency ident.Address) (Relayed, error)
}
