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

package groups

import (
	"errors"
	"fmt"

	"github.com/ticket721/t721controller/currency"
	"github.com/ticket721/t721controller/ident"
)

var (
	// ErrIndexOutOfRange indicates a category index at or past the group's
	// category count.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidName indicates an all-zero category name.
	ErrInvalidName = errors.New("invalid name")

	// ErrNameInUse indicates a category name already taken within the
	// group, either by a stored category or earlier in the same batch.
	ErrNameInUse = errors.New("name already in use")

	// ErrDuplicateCurrency indicates a price table listing the same
	// currency twice.
	ErrDuplicateCurrency = errors.New("duplicate currency")

	// ErrZeroPrice indicates a price table entry with a zero amount.
	ErrZeroPrice = errors.New("invalid price")

	// ErrInvalidTimeWindow indicates inconsistent sale or resale bounds.
	ErrInvalidTimeWindow = errors.New("invalid time window")

	// ErrAmountTooLow indicates an edit setting the inventory cap below
	// the number of tickets already sold.
	ErrAmountTooLow = errors.New("amount too low")

	// ErrSoldOut indicates a category with no inventory left.
	ErrSoldOut = errors.New("category sold out")

	// ErrCurrencyNotPriced indicates a currency absent from a category's
	// price table.
	ErrCurrencyNotPriced = errors.New("currency not priced")
)

// Price is one entry of a category's price table. Order is preserved from
// registration so packed encodings round-trip deterministically.
type Price struct {
	Currency ident.Address
	Amount   uint64
}

// Category is one sellable ticket class of a group. Name and Sold are fixed
// at registration and by sales respectively; everything else is editable by
// the group's managers.
type Category struct {
	Name      ident.Bytes32
	Hierarchy ident.Bytes32

	// Amount caps inventory; Sold counts minted tickets and never
	// decreases or exceeds Amount.
	Amount uint64
	Sold   uint64

	// Unix seconds. The primary sale runs [SaleStart, SaleEnd); the
	// resale market closes at ResaleEnd.
	SaleStart   int64
	SaleEnd     int64
	ResaleStart int64
	ResaleEnd   int64

	// AuthorizationKey, when set, gates every mint in this category on a
	// signed one-time code from that key. AttachmentKey gates attachments
	// the same way.
	AuthorizationKey ident.Address
	AttachmentKey    ident.Address

	Prices []Price
}

// Price returns the category's price for a currency.
func (c *Category) Price(currency ident.Address) (uint64, error) {
	for _, p := range c.Prices {
		if p.Currency == currency {
			return p.Amount, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrCurrencyNotPriced, currency)
}

// SaleOpen reports whether the primary sale window contains now.
func (c *Category) SaleOpen(now int64) bool {
	return c.SaleStart <= now && now < c.SaleEnd
}

// Spec describes a category to register or the replacement state of an
// edit. Sold is not part of it; edits keep the stored counter.
type Spec struct {
	Name             ident.Bytes32
	Hierarchy        ident.Bytes32
	Amount           uint64
	SaleStart        int64
	SaleEnd          int64
	ResaleStart      int64
	ResaleEnd        int64
	AuthorizationKey ident.Address
	AttachmentKey    ident.Address
	Prices           []Price
}

func (sp *Spec) validatePrices() error {
	seen := make(map[ident.Address]struct{}, len(sp.Prices))
	for _, p := range sp.Prices {
		if _, ok := seen[p.Currency]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCurrency, p.Currency)
		}
		seen[p.Currency] = struct{}{}
		if p.Amount == 0 {
			return fmt.Errorf("%w: %s prices at zero", ErrZeroPrice, p.Currency)
		}
	}
	return nil
}

// validateWindows checks the bounds a registration demands. requireFuture
// is false on edits: a running sale keeps its past start.
func (sp *Spec) validateWindows(now int64, requireFuture bool) error {
	if requireFuture && sp.SaleStart < now {
		return fmt.Errorf("%w: sale start in the past", ErrInvalidTimeWindow)
	}
	if sp.SaleEnd <= sp.SaleStart {
		return fmt.Errorf("%w: sale end before sale start", ErrInvalidTimeWindow)
	}
	if sp.ResaleEnd <= sp.ResaleStart {
		return fmt.Errorf("%w: resale end before resale start", ErrInvalidTimeWindow)
	}
	return nil
}

// RegisterCategories appends a batch of categories to a group and returns
// their assigned indices. Owner or admin only. The batch is validated as a
// whole and applied atomically: a bad entry rejects every entry.
func (s *Store) RegisterCategories(caller ident.Address, groupID ident.Hash, specs []Spec) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.get(groupID)
	if err != nil {
		return nil, err
	}
	if !g.CanManage(caller) {
		return nil, ErrUnauthorized
	}

	now := s.now().Unix()
	names := make(map[ident.Bytes32]struct{}, len(g.categories)+len(specs))
	for _, c := range g.categories {
		names[c.Name] = struct{}{}
	}
	for i, sp := range specs {
		if sp.Name == (ident.Bytes32{}) {
			return nil, fmt.Errorf("category %d: %w", i, ErrInvalidName)
		}
		if _, ok := names[sp.Name]; ok {
			return nil, fmt.Errorf("category %d: %w: %s", i, ErrNameInUse, sp.Name)
		}
		names[sp.Name] = struct{}{}
		if err := sp.validatePrices(); err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		if err := sp.validateWindows(now, true); err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
	}

	indices := make([]uint32, 0, len(specs))
	for _, sp := range specs {
		indices = append(indices, uint32(len(g.categories)))
		g.categories = append(g.categories, newCategory(sp))
	}
	return indices, nil
}

func newCategory(sp Spec) *Category {
	return &Category{
		Name:             sp.Name,
		Hierarchy:        sp.Hierarchy,
		Amount:           sp.Amount,
		SaleStart:        sp.SaleStart,
		SaleEnd:          sp.SaleEnd,
		ResaleStart:      sp.ResaleStart,
		ResaleEnd:        sp.ResaleEnd,
		AuthorizationKey: sp.AuthorizationKey,
		AttachmentKey:    sp.AttachmentKey,
		Prices:           append([]Price(nil), sp.Prices...),
	}
}

// EditCategory replaces every field of a category except its name and sold
// counter. Owner or admin only. Every priced currency must satisfy the
// whitelisted predicate, and the new cap may not undercut tickets already
// sold.
func (s *Store) EditCategory(caller ident.Address, groupID ident.Hash, idx uint32, sp Spec, whitelisted func(ident.Address) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.get(groupID)
	if err != nil {
		return err
	}
	if !g.CanManage(caller) {
		return ErrUnauthorized
	}
	if int(idx) >= len(g.categories) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, idx, len(g.categories))
	}
	c := g.categories[idx]

	if err := sp.validatePrices(); err != nil {
		return err
	}
	if err := sp.validateWindows(0, false); err != nil {
		return err
	}
	for _, p := range sp.Prices {
		if !whitelisted(p.Currency) {
			return fmt.Errorf("%w: %s", currency.ErrUnwhitelisted, p.Currency)
		}
	}
	if sp.Amount < c.Sold {
		return fmt.Errorf("%w: cap %d under %d sold", ErrAmountTooLow, sp.Amount, c.Sold)
	}

	edited := newCategory(sp)
	edited.Name = c.Name
	edited.Sold = c.Sold
	g.categories[idx] = edited
	return nil
}

// CategoryCount returns the number of categories registered in a group.
func (s *Store) CategoryCount(groupID ident.Hash) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.get(groupID)
	if err != nil {
		return 0, err
	}
	return uint32(len(g.categories)), nil
}

// Category returns a copy of a group's idx-th category.
func (s *Store) Category(groupID ident.Hash, idx uint32) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.category(groupID, idx)
	if err != nil {
		return Category{}, err
	}
	out := *c
	out.Prices = append([]Price(nil), c.Prices...)
	return out, nil
}

// CategoryPrice returns the price of a category in a currency.
func (s *Store) CategoryPrice(groupID ident.Hash, idx uint32, currency ident.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.category(groupID, idx)
	if err != nil {
		return 0, err
	}
	return c.Price(currency)
}

func (s *Store) category(groupID ident.Hash, idx uint32) (*Category, error) {
	g, err := s.get(groupID)
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(g.categories) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, idx, len(g.categories))
	}
	return g.categories[idx], nil
}

// RecordSale advances a category's sold counter by n, failing without
// mutation if the inventory cap does not cover it.
func (s *Store) RecordSale(groupID ident.Hash, idx uint32, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.category(groupID, idx)
	if err != nil {
		return err
	}
	if c.Sold+n > c.Amount {
		return fmt.Errorf("%w: %d sold of %d", ErrSoldOut, c.Sold, c.Amount)
	}
	c.Sold += n
	return nil
}
