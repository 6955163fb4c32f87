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

// Package payment settles the multi-currency payment pipeline: it pulls
// funds from payers, splits the fee to the collector and credits the
// remainder to the withdrawable per-group ledger balance.
package payment

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ticket721/t721controller/ident"
)

// ErrBalanceTooLow indicates a debit above the current ledger balance.
var ErrBalanceTooLow = errors.New("balance too low")

type balanceKey struct {
	group    ident.Hash
	currency ident.Address
}

// Balances holds funds collected on behalf of groups, keyed by
// (group, currency). Funds leave only through a signed withdrawal.
type Balances struct {
	mu    sync.Mutex
	funds map[balanceKey]uint64
}

func NewBalances() *Balances {
	return &Balances{
		funds: make(map[balanceKey]uint64),
	}
}

// Credit adds amount to a group's balance in a currency.
func (b *Balances) Credit(group ident.Hash, currency ident.Address, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.funds[balanceKey{group: group, currency: currency}] += amount
}

// Debit removes amount from a group's balance, failing if the balance does
// not cover it.
func (b *Balances) Debit(group ident.Hash, currency ident.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := balanceKey{group: group, currency: currency}
	if b.funds[key] < amount {
		return fmt.Errorf("%w: have %d, want %d", ErrBalanceTooLow, b.funds[key], amount)
	}
	b.funds[key] -= amount
	return nil
}

// Balance returns a group's balance in a currency.
func (b *Balances) Balance(group ident.Hash, currency ident.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.funds[balanceKey{group: group, currency: currency}]
}
