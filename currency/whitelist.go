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

// Package currency tracks the whitelisted payment currencies and their fee
// schedules. Only whitelisted currencies can price categories or settle
// payments; everything else is rejected before funds move.
package currency

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ticket721/t721controller/ident"
)

// Basis is the denominator of percentage fees: a PercentFee of 10 takes 10%.
const Basis = 100

// Kind distinguishes how a currency's transfers are authorized.
type Kind int

const (
	// KindDirect is a plain allowance-pull token: the payer approves the
	// controller before the call.
	KindDirect Kind = iota + 1
	// KindRelayed is a meta-transaction token: the transfer itself is
	// authorized by a payer signature carried inside the call.
	KindRelayed
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindRelayed:
		return "relayed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is one whitelisted currency's fee schedule.
type Entry struct {
	Kind       Kind
	FixedFee   uint64
	PercentFee uint64
}

var (
	// ErrUnwhitelisted indicates a currency with no whitelist entry.
	ErrUnwhitelisted = errors.New("unauthorized currency")

	// ErrFeeExceedsAmount indicates a paid amount below the currency's
	// fixed fee, which cannot be settled without truncating the fee.
	ErrFeeExceedsAmount = errors.New("paid amount is under fixed fee")

	// ErrUselessOperation indicates a removal of an entry that does not
	// exist. No-op mutations are rejected, never silently accepted.
	ErrUselessOperation = errors.New("useless transaction")

	// ErrInvalidKind indicates an entry added with an unknown kind.
	ErrInvalidKind = errors.New("invalid currency kind")
)

// Whitelist is the fee schedule table. Safe for concurrent use.
type Whitelist struct {
	mu      sync.RWMutex
	entries map[ident.Address]Entry
}

func NewWhitelist() *Whitelist {
	return &Whitelist{
		entries: make(map[ident.Address]Entry),
	}
}

// Add whitelists a currency or overwrites its existing schedule.
func (w *Whitelist) Add(currency ident.Address, entry Entry) error {
	if entry.Kind != KindDirect && entry.Kind != KindRelayed {
		return fmt.Errorf("%w: %d", ErrInvalidKind, int(entry.Kind))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[currency] = entry
	return nil
}

// Remove drops a currency from the whitelist. Removing an absent entry is a
// useless transaction and fails.
func (w *Whitelist) Remove(currency ident.Address) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entries[currency]; !ok {
		return ErrUselessOperation
	}
	delete(w.entries, currency)
	return nil
}

// Get returns the entry for a currency, failing if it is not whitelisted.
func (w *Whitelist) Get(currency ident.Address) (Entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	entry, ok := w.entries[currency]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnwhitelisted, currency)
	}
	return entry, nil
}

// Contains reports whether a currency is whitelisted.
func (w *Whitelist) Contains(currency ident.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.entries[currency]
	return ok
}

// Fee computes the fee owed on a gross amount in the given currency:
// max(gross*PercentFee/Basis, FixedFee). An amount below the fixed fee
// fails rather than truncating.
func (w *Whitelist) Fee(currency ident.Address, gross uint64) (uint64, error) {
	entry, err := w.Get(currency)
	if err != nil {
		return 0, err
	}
	if gross < entry.FixedFee {
		return 0, fmt.Errorf("%w: amount %d, fixed fee %d", ErrFeeExceedsAmount, gross, entry.FixedFee)
	}
	fee := gross * entry.PercentFee / Basis
	if fee < entry.FixedFee {
		fee = entry.FixedFee
	}
	return fee, nil
}
