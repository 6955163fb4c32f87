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

// Package controller implements the ticket issuance controller: an
// authorization-gated facade over group and category registries, a
// multi-currency payment pipeline and an exactly-once code ledger.
//
// Every mutating operation has a Verify* twin that runs the identical
// validation without moving funds or touching state, so callers can
// pre-validate assembled transactions. One mutex serializes all calls;
// when a settlement step fails, the steps completed before it are
// unwound, so no partial effects survive a failed call.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ticket721/t721controller/codes"
	"github.com/ticket721/t721controller/codes/inmem"
	"github.com/ticket721/t721controller/currency"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/groups"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/payment"
	"github.com/ticket721/t721controller/token"
)

// Controller is the facade. All exported methods are safe for concurrent
// use and atomic: a failed call leaves no partial effects.
type Controller struct {
	mu  sync.Mutex
	log *slog.Logger
	now func() time.Time

	domain       eip712.Domain
	self         ident.Address
	owner        ident.Address
	feeCollector ident.Address

	whitelist *currency.Whitelist
	groups    *groups.Store
	balances  *payment.Balances
	processor *payment.Processor
	codes     codes.Ledger
	registry  token.Registry
	directory token.Directory

	// attachments records per-ticket extras added after mint.
	attachments map[uint64][]Attachment
}

// Attachment is a named extra bound to a ticket after mint.
type Attachment struct {
	Name   ident.Bytes32
	Amount uint64
}

// New builds a controller from its configuration and the two external
// collaborators: the non-fungible ticket registry and the currency token
// directory.
func New(cfg Config, registry token.Registry, directory token.Directory, opts ...Option) (*Controller, error) {
	c := &Controller{
		log:         slog.Default(),
		now:         time.Now,
		whitelist:   currency.NewWhitelist(),
		balances:    payment.NewBalances(),
		codes:       inmem.NewLedger(),
		registry:    registry,
		directory:   directory,
		attachments: make(map[uint64][]Attachment),
	}

	// Options run before the config fields are parsed so they may rewrite
	// the raw Config; everything derived from controller fields (the group
	// store's clock, the processor) is constructed after the loop so
	// overrides like WithClock are always captured.
	for _, opt := range opts {
		if err := opt(c, &cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	self, err := ident.ParseAddress(cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid contract address: %w", err)
	}
	owner, err := ident.ParseAddress(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner: %w", err)
	}
	collector := owner
	if cfg.FeeCollector != "" {
		collector, err = ident.ParseAddress(cfg.FeeCollector)
		if err != nil {
			return nil, fmt.Errorf("invalid fee collector: %w", err)
		}
	}

	c.self = self
	c.owner = owner
	c.feeCollector = collector
	c.domain = eip712.Domain{
		Name:     cfg.DomainName,
		Version:  cfg.DomainVersion,
		ChainID:  cfg.ChainID,
		Contract: self,
	}
	c.groups = groups.NewStore(c.now)
	c.processor = payment.NewProcessor(self, c.whitelist, directory, c.balances)
	return c, nil
}

// Domain returns the signing domain authorizations must be bound to.
func (c *Controller) Domain() eip712.Domain {
	return c.domain
}

// Address returns the controller's own address.
func (c *Controller) Address() ident.Address {
	return c.self
}

// BalanceOf returns a group's withdrawable balance in a currency.
func (c *Controller) BalanceOf(groupID ident.Hash, cur ident.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances.Balance(groupID, cur)
}

// TicketAffiliation resolves the (group, category) a ticket was minted in.
func (c *Controller) TicketAffiliation(ctx context.Context, ticketID uint64) (ident.Hash, uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	group, category, err := c.registry.Affiliation(ctx, ticketID)
	if err != nil {
		return ident.Hash{}, 0, opErr("getTicketAffiliation", err)
	}
	return group, category, nil
}

// Attachments returns the extras bound to a ticket, in attachment order.
func (c *Controller) Attachments(ticketID uint64) []Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Attachment(nil), c.attachments[ticketID]...)
}

func (c *Controller) requireOwner(caller ident.Address) error {
	if caller != c.owner {
		return ErrUnauthorizedCaller
	}
	return nil
}
