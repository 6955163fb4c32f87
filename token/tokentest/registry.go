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

package tokentest

import (
	"context"
	"sync"

	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/token"
)

type ticket struct {
	owner    ident.Address
	group    ident.Hash
	category uint32
}

// Registry is an in-memory ticket registry assigning sequential ids.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	tickets map[uint64]ticket
}

func NewRegistry() *Registry {
	return &Registry{
		nextID:  1,
		tickets: make(map[uint64]ticket),
	}
}

func (r *Registry) Mint(ctx context.Context, owner ident.Address, group ident.Hash, category uint32) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.tickets[id] = ticket{owner: owner, group: group, category: category}
	return id, nil
}

func (r *Registry) Burn(ctx context.Context, ticketID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticketID]; !ok {
		return token.ErrUnknownTicket
	}
	delete(r.tickets, ticketID)
	return nil
}

func (r *Registry) OwnerOf(ctx context.Context, ticketID uint64) (ident.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tk, ok := r.tickets[ticketID]
	if !ok {
		return ident.Address{}, token.ErrUnknownTicket
	}
	return tk.owner, nil
}

func (r *Registry) BalanceOf(ctx context.Context, owner ident.Address) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n uint64
	for _, tk := range r.tickets {
		if tk.owner == owner {
			n++
		}
	}
	return n, nil
}

func (r *Registry) Affiliation(ctx context.Context, ticketID uint64) (ident.Hash, uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tk, ok := r.tickets[ticketID]
	if !ok {
		return ident.Hash{}, 0, token.ErrUnknownTicket
	}
	return tk.group, tk.category, nil
}

// Directory resolves currency addresses to registered test tokens.
type Directory struct {
	mu     sync.Mutex
	direct map[ident.Address]token.Fungible
	relay  map[ident.Address]token.Relayed
}

func NewDirectory() *Directory {
	return &Directory{
		direct: make(map[ident.Address]token.Fungible),
		relay:  make(map[ident.Address]token.Relayed),
	}
}

// RegisterFungible binds a direct token to a currency address.
func (d *Directory) RegisterFungible(currency ident.Address, tok token.Fungible) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.direct[currency] = tok
}

// RegisterRelayed binds a relayed token to a currency address. The token is
// also resolvable as plain fungible.
func (d *Directory) RegisterRelayed(currency ident.Address, tok token.Relayed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.direct[currency] = tok
	d.relay[currency] = tok
}

func (d *Directory) Fungible(ctx context.Context, currency ident.Address) (token.Fungible, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tok, ok := d.direct[currency]
	if !ok {
		return nil, token.ErrUnknownToken
	}
	return tok, nil
}

func (d *Directory) Relayed(ctx context.Context, currency ident.Address) (token.Relayed, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tok, ok := d.relay[currency]
	if !ok {
		return nil, token.ErrUnknownToken
	}
	return tok, nil
}
