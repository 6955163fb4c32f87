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

// Package tokentest provides in-memory token collaborators with mint and
// approve faucets for the controller test suite.
package tokentest

import (
	"context"
	"sync"

	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/token"
)

type approval struct {
	owner   ident.Address
	spender ident.Address
}

// Fungible is an in-memory allowance-pull token.
type Fungible struct {
	mu         sync.Mutex
	balances   map[ident.Address]uint64
	allowances map[approval]uint64
}

func NewFungible() *Fungible {
	return &Fungible{
		balances:   make(map[ident.Address]uint64),
		allowances: make(map[approval]uint64),
	}
}

// Mint credits an account out of thin air. Test faucet.
func (f *Fungible) Mint(owner ident.Address, amount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[owner] += amount
}

// Approve lets spender pull up to amount from owner.
func (f *Fungible) Approve(owner, spender ident.Address, amount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowances[approval{owner: owner, spender: spender}] = amount
}

func (f *Fungible) BalanceOf(ctx context.Context, owner ident.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[owner], nil
}

func (f *Fungible) Allowance(ctx context.Context, owner, spender ident.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allowances[approval{owner: owner, spender: spender}], nil
}

func (f *Fungible) TransferFrom(ctx context.Context, spender, from, to ident.Address, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := approval{owner: from, spender: spender}
	if f.allowances[key] < amount {
		return token.ErrInsufficientAllowance
	}
	if f.balances[from] < amount {
		return token.ErrInsufficientBalance
	}
	f.allowances[key] -= amount
	f.move(from, to, amount)
	return nil
}

func (f *Fungible) Transfer(ctx context.Context, from, to ident.Address, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.balances[from] < amount {
		return token.ErrInsufficientBalance
	}
	f.move(from, to, amount)
	return nil
}

// move assumes f.mu is held and the balance was checked.
func (f *Fungible) move(from, to ident.Address, amount uint64) {
	f.balances[from] -= amount
	f.balances[to] += amount
}
