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

package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ticket721/t721controller/currency"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/token"
)

var (
	// ErrFeeMismatch indicates a declared fee that does not equal the fee
	// the whitelist schedule computes for the amount. The declared fee is
	// part of the signed price table, so it must match exactly.
	ErrFeeMismatch = errors.New("declared fee mismatch")

	// ErrAllowanceTooLow indicates the payer has not approved enough funds
	// for an allowance-pull item.
	ErrAllowanceTooLow = errors.New("allowance too low")

	// ErrTransferFailed indicates the token collaborator rejected a
	// transfer that passed the allowance pre-check.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrInvalidRelay indicates a relayed item whose authorization is
	// missing, malformed or signed by the wrong identity.
	ErrInvalidRelay = errors.New("invalid relay authorization")
)

// Item is one (currency, amount, fee) unit of a payment list. Relay must be
// set exactly when the currency is whitelisted as relayed.
type Item struct {
	Currency ident.Address
	Amount   uint64
	Fee      uint64
	Relay    *token.RelayedTransfer
}

// Processor validates and settles payment lists. Check performs every
// validation without side effects; Execute re-runs the same checks against
// current state and then moves the funds. Both paths share one code path by
// construction, so a list accepted by Check is accepted by Execute absent a
// state change in between.
type Processor struct {
	self      ident.Address
	whitelist *currency.Whitelist
	directory token.Directory
	balances  *Balances
}

func NewProcessor(self ident.Address, whitelist *currency.Whitelist, directory token.Directory, balances *Balances) *Processor {
	return &Processor{
		self:      self,
		whitelist: whitelist,
		directory: directory,
		balances:  balances,
	}
}

// Check validates every item of a payment list against the current
// whitelist, allowances and relay authorizations. An empty list is valid
// and checks nothing.
func (p *Processor) Check(ctx context.Context, payer ident.Address, items []Item) error {
	for i, item := range items {
		if err := p.checkItem(ctx, payer, item); err != nil {
			return fmt.Errorf("payment %d: %w", i, err)
		}
	}
	return nil
}

func (p *Processor) checkItem(ctx context.Context, payer ident.Address, item Item) error {
	entry, err := p.whitelist.Get(item.Currency)
	if err != nil {
		return err
	}

	fee, err := p.whitelist.Fee(item.Currency, item.Amount)
	if err != nil {
		return err
	}
	if fee != item.Fee {
		return fmt.Errorf("%w: declared %d, schedule computes %d", ErrFeeMismatch, item.Fee, fee)
	}

	switch entry.Kind {
	case currency.KindDirect:
		if item.Relay != nil {
			return fmt.Errorf("%w: relay authorization on a direct currency", ErrInvalidRelay)
		}
		tok, err := p.directory.Fungible(ctx, item.Currency)
		if err != nil {
			return err
		}
		allowance, err := tok.Allowance(ctx, payer, p.self)
		if err != nil {
			return fmt.Errorf("allowance query: %w", err)
		}
		if allowance < item.Amount {
			return fmt.Errorf("%w: approved %d, need %d", ErrAllowanceTooLow, allowance, item.Amount)
		}
		return nil

	case currency.KindRelayed:
		return p.checkRelay(payer, item)

	default:
		return fmt.Errorf("%w: %s", currency.ErrInvalidKind, entry.Kind)
	}
}

func (p *Processor) checkRelay(payer ident.Address, item Item) error {
	relay := item.Relay
	if relay == nil {
		return fmt.Errorf("%w: missing relay authorization", ErrInvalidRelay)
	}
	if relay.Signer != payer {
		return fmt.Errorf("%w: signer %s is not the payer", ErrInvalidRelay, relay.Signer)
	}
	if relay.To != p.self {
		return fmt.Errorf("%w: destination %s is not the controller", ErrInvalidRelay, relay.To)
	}
	if relay.Amount != item.Amount {
		return fmt.Errorf("%w: authorized %d, item pays %d", ErrInvalidRelay, relay.Amount, item.Amount)
	}
	if relay.GasLimit == 0 {
		return fmt.Errorf("%w: zero gas limit", ErrInvalidRelay)
	}

	signer, err := eip712.Recover(relay.Digest(item.Currency), relay.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRelay, err)
	}
	if signer != relay.Signer {
		return fmt.Errorf("%w: recovered %s, want %s", ErrInvalidRelay, signer, relay.Signer)
	}
	return nil
}

// Execute settles a payment list: re-validates against current state, pulls
// each gross amount from the payer into the controller's own account and
// credits the net to creditTarget's ledger balance. The fee slice stays at
// the controller until [Processor.ForwardFees] pays it out, so a settlement
// unwound by [Processor.Refund] restores the payer in full.
//
// Execute is all-or-nothing: if an item fails, the items settled before it
// are refunded and the error is returned.
func (p *Processor) Execute(ctx context.Context, payer ident.Address, creditTarget ident.Hash, items []Item) error {
	if err := p.Check(ctx, payer, items); err != nil {
		return err
	}

	for i, item := range items {
		if err := p.executeItem(ctx, payer, creditTarget, item); err != nil {
			if rerr := p.Refund(ctx, payer, creditTarget, items[:i]); rerr != nil {
				return fmt.Errorf("payment %d: %w (refund of settled items also failed: %v)", i, err, rerr)
			}
			return fmt.Errorf("payment %d: %w", i, err)
		}
	}
	return nil
}

func (p *Processor) executeItem(ctx context.Context, payer ident.Address, creditTarget ident.Hash, item Item) error {
	entry, err := p.whitelist.Get(item.Currency)
	if err != nil {
		return err
	}

	switch entry.Kind {
	case currency.KindDirect:
		tok, err := p.directory.Fungible(ctx, item.Currency)
		if err != nil {
			return err
		}
		if err := tok.TransferFrom(ctx, p.self, payer, p.self, item.Amount); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}

	case currency.KindRelayed:
		tok, err := p.directory.Relayed(ctx, item.Currency)
		if err != nil {
			return err
		}
		if err := tok.TransferWithAuthorization(ctx, *item.Relay); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	p.balances.Credit(creditTarget, item.Currency, item.Amount-item.Fee)
	return nil
}

// Refund reverts an executed payment list: debits the net from
// creditTarget's ledger balance and returns each gross amount from the
// controller's account to the payer. Call it only with items Execute has
// settled and whose fees have not been forwarded.
func (p *Processor) Refund(ctx context.Context, payer ident.Address, creditTarget ident.Hash, items []Item) error {
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if err := p.balances.Debit(creditTarget, item.Currency, item.Amount-item.Fee); err != nil {
			return fmt.Errorf("refund %d: %w", i, err)
		}
		if err := p.transferOut(ctx, item.Currency, payer, item.Amount); err != nil {
			return fmt.Errorf("refund %d: %w", i, err)
		}
	}
	return nil
}

// ForwardFees pays each item's fee slice from the controller's account to
// the collector. It runs after a settlement commits; a failure leaves the
// slice parked at the controller and never unwinds the settled sale.
func (p *Processor) ForwardFees(ctx context.Context, feeCollector ident.Address, items []Item) error {
	for i, item := range items {
		if item.Fee == 0 {
			continue
		}
		if err := p.transferOut(ctx, item.Currency, feeCollector, item.Fee); err != nil {
			return fmt.Errorf("fee %d: %w", i, err)
		}
	}
	return nil
}

// transferOut moves the controller's own funds in a whitelisted currency.
func (p *Processor) transferOut(ctx context.Context, cur, to ident.Address, amount uint64) error {
	entry, err := p.whitelist.Get(cur)
	if err != nil {
		return err
	}

	var tok token.Fungible
	switch entry.Kind {
	case currency.KindDirect:
		tok, err = p.directory.Fungible(ctx, cur)
	case currency.KindRelayed:
		tok, err = p.directory.Relayed(ctx, cur)
	default:
		return fmt.Errorf("%w: %s", currency.ErrInvalidKind, entry.Kind)
	}
	if err != nil {
		return err
	}
	if err := tok.Transfer(ctx, p.self, to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}
