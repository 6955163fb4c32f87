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
	"context"
	"fmt"
	"log/slog"

	"github.com/ticket721/t721controller/codes"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/groups"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/internal/otelutil"
	"github.com/ticket721/t721controller/payment"
)

// TicketOrder is one requested ticket: its future owner plus the optional
// signed one-time code gating the sale.
type TicketOrder struct {
	Owner ident.Address
	Code  uint64
	// Authorization is a 65-byte signature over the cost-binding envelope,
	// or empty/all-zero on the open sale path.
	Authorization []byte
}

// MintRequest asks for len(Tickets) tickets of one category, funded by
// Payments.
type MintRequest struct {
	GroupID  ident.Hash
	Category uint32
	Payments []payment.Item
	Tickets  []TicketOrder
}

// MintResult reports the minted tickets, in submitted order.
type MintResult struct {
	Minted []TicketMinted
}

// codeUse is one (scope, code) pair the apply phase will consume.
type codeUse struct {
	scope ident.Hash
	code  uint64
}

type mintPlan struct {
	category groups.Category
	uses     []codeUse
}

// Mint validates a mint request in full and then applies it: pulls the
// payments, consumes the authorization codes, advances the sold counter and
// mints one registry ticket per order.
func (c *Controller) Mint(ctx context.Context, caller ident.Address, req MintRequest) (MintResult, error) {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.Mint")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	plan, err := c.planMint(ctx, caller, req)
	if err != nil {
		return MintResult{}, otelutil.RecordError(span, opErr("mint", err))
	}
	res, err := c.applyMint(ctx, caller, req, plan)
	if err != nil {
		return MintResult{}, otelutil.RecordError(span, opErr("mint", err))
	}
	return res, nil
}

// VerifyMint runs every mint validation without moving funds or mutating
// state. A request it accepts is accepted by Mint, absent a state change in
// between.
func (c *Controller) VerifyMint(ctx context.Context, caller ident.Address, req MintRequest) error {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.VerifyMint")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.planMint(ctx, caller, req); err != nil {
		return otelutil.RecordError(span, opErr("verifyMint", err))
	}
	return nil
}

func (c *Controller) planMint(ctx context.Context, caller ident.Address, req MintRequest) (*mintPlan, error) {
	n := uint64(len(req.Tickets))
	if n == 0 {
		return nil, ErrNoTickets
	}

	g, err := c.groups.Get(req.GroupID)
	if err != nil {
		return nil, err
	}
	cat, err := c.groups.Category(req.GroupID, req.Category)
	if err != nil {
		return nil, err
	}

	if !cat.SaleOpen(c.now().Unix()) {
		return nil, ErrSaleClosed
	}
	if cat.Sold+n > cat.Amount {
		return nil, fmt.Errorf("%w: %d sold of %d, %d requested", groups.ErrSoldOut, cat.Sold, cat.Amount, n)
	}

	if err := c.processor.Check(ctx, caller, req.Payments); err != nil {
		return nil, err
	}
	if err := checkPaymentScore(&cat, req.Payments, n); err != nil {
		return nil, err
	}

	plan := &mintPlan{category: cat}
	seen := make(map[codeUse]struct{}, n)
	for i, tk := range req.Tickets {
		use, ok, err := c.planTicketAuthorization(ctx, g, &cat, req, tk)
		if err != nil {
			return nil, fmt.Errorf("ticket %d: %w", i, err)
		}
		if !ok {
			continue
		}
		if _, dup := seen[use]; dup {
			return nil, fmt.Errorf("ticket %d: %w", i, codes.ErrAlreadyUsed)
		}
		seen[use] = struct{}{}
		plan.uses = append(plan.uses, use)
	}
	return plan, nil
}

// checkPaymentScore requires the purchasing power of the payment list, each
// gross amount divided by the category's price in that currency, to cover
// the tickets requested. Unpriced categories paired with empty payment
// lists are the free path and skip the check.
func checkPaymentScore(cat *groups.Category, items []payment.Item, tickets uint64) error {
	if len(cat.Prices) == 0 && len(items) == 0 {
		return nil
	}
	var score uint64
	for _, it := range items {
		price, err := cat.Price(it.Currency)
		if err != nil {
			return err
		}
		score += it.Amount / price
	}
	if score < tickets {
		return fmt.Errorf("%w: pays for %d of %d tickets", ErrPaymentTooLow, score, tickets)
	}
	return nil
}

// planTicketAuthorization validates one ticket's authorization and returns
// the (scope, code) to consume, with ok false on the open sale path.
//
// Categories with an authorization key demand a signed code from that key
// on every ticket. Categories without one accept bare orders, or a code
// signed by the group owner; a code without a signature or a signature
// without a code is useless and rejected.
func (c *Controller) planTicketAuthorization(ctx context.Context, g *groups.Group, cat *groups.Category, req MintRequest, tk TicketOrder) (codeUse, bool, error) {
	hasSig := len(tk.Authorization) > 0 && !eip712.IsZero(tk.Authorization)

	var signer ident.Address
	if cat.AuthorizationKey == (ident.Address{}) {
		hasCode := tk.Code != 0
		if !hasSig && !hasCode {
			return codeUse{}, false, nil
		}
		if hasCode && !hasSig {
			return codeUse{}, false, ErrUselessCode
		}
		if hasSig && !hasCode {
			return codeUse{}, false, ErrUselessSignature
		}
		signer = g.Owner
	} else {
		if !hasSig {
			return codeUse{}, false, fmt.Errorf("%w: authorization required", ErrInvalidAuthorization)
		}
		signer = cat.AuthorizationKey
	}

	binding := MintBinding(req.Payments, req.GroupID, cat.Name, tk.Code)
	if err := c.verifyAuthorization(signer, tk.Owner, binding, tk.Authorization); err != nil {
		return codeUse{}, false, err
	}

	use := codeUse{scope: codes.Scope(req.GroupID, signer), code: tk.Code}
	used, err := c.codes.Used(ctx, use.scope, use.code)
	if err != nil {
		return codeUse{}, false, err
	}
	if used {
		return codeUse{}, false, codes.ErrAlreadyUsed
	}
	return use, true, nil
}

// applyMint settles a planned mint. Each step past the payment pull is
// unwound if a later step fails, so a failed call leaves no partial
// effects.
func (c *Controller) applyMint(ctx context.Context, caller ident.Address, req MintRequest, plan *mintPlan) (MintResult, error) {
	if err := c.processor.Execute(ctx, caller, req.GroupID, req.Payments); err != nil {
		return MintResult{}, err
	}

	var minted []uint64
	var consumed []codeUse
	fail := func(err error) (MintResult, error) {
		c.unwindMint(ctx, caller, req, minted, consumed)
		return MintResult{}, err
	}

	for _, use := range plan.uses {
		if err := c.codes.Consume(ctx, use.scope, use.code); err != nil {
			return fail(err)
		}
		consumed = append(consumed, use)
	}
	for _, tk := range req.Tickets {
		id, err := c.registry.Mint(ctx, tk.Owner, req.GroupID, req.Category)
		if err != nil {
			return fail(err)
		}
		minted = append(minted, id)
	}
	if err := c.groups.RecordSale(req.GroupID, req.Category, uint64(len(req.Tickets))); err != nil {
		return fail(err)
	}

	// The sale is settled; a failed fee forward parks the slice at the
	// controller instead of failing the call.
	if err := c.processor.ForwardFees(ctx, c.feeCollector, req.Payments); err != nil {
		c.log.ErrorContext(ctx, "fee forward failed, slice retained", slog.Any("error", err))
	}

	res := MintResult{Minted: make([]TicketMinted, 0, len(req.Tickets))}
	for i, tk := range req.Tickets {
		res.Minted = append(res.Minted, TicketMinted{
			GroupID:      req.GroupID,
			CategoryName: plan.category.Name,
			Owner:        tk.Owner,
			Buyer:        caller,
			TicketID:     minted[i],
		})
		c.log.InfoContext(ctx, "ticket minted",
			slog.String("group_id", req.GroupID.String()),
			slog.String("category", plan.category.Name.String()),
			slog.String("owner", tk.Owner.String()),
			slog.Uint64("ticket_id", minted[i]),
		)
	}
	return res, nil
}

// unwindMint reverts a partially applied mint, newest effect first. Unwind
// errors mean a collaborator broke mid-revert; they are logged, there is
// nothing left to compensate with.
func (c *Controller) unwindMint(ctx context.Context, caller ident.Address, req MintRequest, minted []uint64, consumed []codeUse) {
	for i := len(minted) - 1; i >= 0; i-- {
		if err := c.registry.Burn(ctx, minted[i]); err != nil {
			c.log.ErrorContext(ctx, "unwind burn failed",
				slog.Uint64("ticket_id", minted[i]), slog.Any("error", err))
		}
	}
	for i := len(consumed) - 1; i >= 0; i-- {
		if err := c.codes.Release(ctx, consumed[i].scope, consumed[i].code); err != nil {
			c.log.ErrorContext(ctx, "unwind release failed",
				slog.Uint64("code", consumed[i].code), slog.Any("error", err))
		}
	}
	if err := c.processor.Refund(ctx, caller, req.GroupID, req.Payments); err != nil {
		c.log.ErrorContext(ctx, "unwind refund failed", slog.Any("error", err))
	}
}
