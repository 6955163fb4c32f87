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

// AttachmentOrder is one requested attachment: a named extra with its
// declared amount and the optional signed one-time code.
type AttachmentOrder struct {
	Name          ident.Bytes32
	Amount        uint64
	Code          uint64
	Authorization []byte
}

// AttachRequest binds extras to a ticket the caller owns, funded by
// Payments credited to the ticket's group.
type AttachRequest struct {
	TicketID    uint64
	Payments    []payment.Item
	Attachments []AttachmentOrder
}

// FixRequest is the privileged attach: a group manager runs the attach flow
// on someone else's ticket. The declared group and category must match the
// ticket's recorded affiliation.
type FixRequest struct {
	GroupID     ident.Hash
	Category    uint32
	TicketID    uint64
	Payments    []payment.Item
	Attachments []AttachmentOrder
}

type attachPlan struct {
	groupID  ident.Hash
	category groups.Category
	uses     []codeUse
}

// Attach validates and applies an attach request: pulls the payments into
// the ticket's group balance and binds each extra to the ticket.
func (c *Controller) Attach(ctx context.Context, caller ident.Address, req AttachRequest) ([]AttachmentAdded, error) {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.Attach")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	plan, err := c.planAttach(ctx, caller, req.TicketID, req.Payments, req.Attachments, true)
	if err != nil {
		return nil, otelutil.RecordError(span, attachErr("attach", err))
	}
	events, err := c.applyAttach(ctx, caller, req.TicketID, req.Payments, req.Attachments, plan)
	if err != nil {
		return nil, otelutil.RecordError(span, attachErr("attach", err))
	}
	return events, nil
}

// VerifyAttach runs every attach validation without moving funds or
// mutating state.
func (c *Controller) VerifyAttach(ctx context.Context, caller ident.Address, req AttachRequest) error {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.VerifyAttach")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.planAttach(ctx, caller, req.TicketID, req.Payments, req.Attachments, true); err != nil {
		return otelutil.RecordError(span, attachErr("verifyAttach", err))
	}
	return nil
}

// FixAttachments is the privileged attach. The caller must manage the
// group the ticket belongs to, and the declared affiliation must match the
// registry's.
func (c *Controller) FixAttachments(ctx context.Context, caller ident.Address, req FixRequest) ([]AttachmentAdded, error) {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.FixAttachments")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	plan, err := c.planFix(ctx, caller, req)
	if err != nil {
		return nil, otelutil.RecordError(span, attachErr("fixAttachments", err))
	}
	events, err := c.applyAttach(ctx, caller, req.TicketID, req.Payments, req.Attachments, plan)
	if err != nil {
		return nil, otelutil.RecordError(span, attachErr("fixAttachments", err))
	}
	return events, nil
}

// VerifyFixAttachments is the dry-run twin of FixAttachments.
func (c *Controller) VerifyFixAttachments(ctx context.Context, caller ident.Address, req FixRequest) error {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.VerifyFixAttachments")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.planFix(ctx, caller, req); err != nil {
		return otelutil.RecordError(span, attachErr("verifyFixAttachments", err))
	}
	return nil
}

func (c *Controller) planFix(ctx context.Context, caller ident.Address, req FixRequest) (*attachPlan, error) {
	g, err := c.groups.Get(req.GroupID)
	if err != nil {
		return nil, err
	}
	if !g.CanManage(caller) {
		return nil, ErrUnauthorizedCaller
	}

	group, category, err := c.registry.Affiliation(ctx, req.TicketID)
	if err != nil {
		return nil, err
	}
	if group != req.GroupID {
		return nil, fmt.Errorf("%w: ticket belongs to %s", ErrGroupMismatch, group)
	}
	if category != req.Category {
		return nil, fmt.Errorf("%w: ticket belongs to index %d", ErrCategoryMismatch, category)
	}

	return c.planAttach(ctx, caller, req.TicketID, req.Payments, req.Attachments, false)
}

func (c *Controller) planAttach(ctx context.Context, caller ident.Address, ticketID uint64, items []payment.Item, orders []AttachmentOrder, requireTicketOwner bool) (*attachPlan, error) {
	if len(orders) == 0 {
		return nil, ErrNoAttachments
	}

	groupID, catIdx, err := c.registry.Affiliation(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	owner, err := c.registry.OwnerOf(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if requireTicketOwner && owner != caller {
		return nil, fmt.Errorf("%w: ticket owned by %s", ErrUnauthorizedCaller, owner)
	}

	g, err := c.groups.Get(groupID)
	if err != nil {
		return nil, err
	}
	cat, err := c.groups.Category(groupID, catIdx)
	if err != nil {
		return nil, err
	}

	if err := c.processor.Check(ctx, caller, items); err != nil {
		return nil, err
	}

	plan := &attachPlan{groupID: groupID, category: cat}
	seen := make(map[codeUse]struct{}, len(orders))
	for i, at := range orders {
		use, ok, err := c.planAttachmentAuthorization(ctx, g, &cat, groupID, owner, items, at)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		if !ok {
			continue
		}
		if _, dup := seen[use]; dup {
			return nil, fmt.Errorf("attachment %d: %w", i, codes.ErrAlreadyUsed)
		}
		seen[use] = struct{}{}
		plan.uses = append(plan.uses, use)
	}
	return plan, nil
}

// planAttachmentAuthorization mirrors the mint rules with the category's
// attachment key in place of the authorization key. The envelope grants the
// extra to the ticket's owner, so a captured signature cannot be replayed
// against another ticket holder.
func (c *Controller) planAttachmentAuthorization(ctx context.Context, g *groups.Group, cat *groups.Category, groupID ident.Hash, ticketOwner ident.Address, items []payment.Item, at AttachmentOrder) (codeUse, bool, error) {
	if at.Name == (ident.Bytes32{}) {
		return codeUse{}, false, groups.ErrInvalidName
	}

	hasSig := len(at.Authorization) > 0 && !eip712.IsZero(at.Authorization)

	var signer ident.Address
	if cat.AttachmentKey == (ident.Address{}) {
		hasCode := at.Code != 0
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
		signer = cat.AttachmentKey
	}

	binding := AttachBinding(items, groupID, cat.Name, at.Name, at.Amount, at.Code)
	if err := c.verifyAuthorization(signer, ticketOwner, binding, at.Authorization); err != nil {
		return codeUse{}, false, err
	}

	use := codeUse{scope: codes.Scope(groupID, signer), code: at.Code}
	used, err := c.codes.Used(ctx, use.scope, use.code)
	if err != nil {
		return codeUse{}, false, err
	}
	if used {
		return codeUse{}, false, codes.ErrAlreadyUsed
	}
	return use, true, nil
}

// applyAttach settles a planned attach. A code consumption failure unwinds
// the codes consumed before it and refunds the pulled payments.
func (c *Controller) applyAttach(ctx context.Context, caller ident.Address, ticketID uint64, items []payment.Item, orders []AttachmentOrder, plan *attachPlan) ([]AttachmentAdded, error) {
	if err := c.processor.Execute(ctx, caller, plan.groupID, items); err != nil {
		return nil, err
	}
	for i, use := range plan.uses {
		if err := c.codes.Consume(ctx, use.scope, use.code); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := c.codes.Release(ctx, plan.uses[j].scope, plan.uses[j].code); rerr != nil {
					c.log.ErrorContext(ctx, "unwind release failed",
						slog.Uint64("code", plan.uses[j].code), slog.Any("error", rerr))
				}
			}
			if rerr := c.processor.Refund(ctx, caller, plan.groupID, items); rerr != nil {
				c.log.ErrorContext(ctx, "unwind refund failed", slog.Any("error", rerr))
			}
			return nil, err
		}
	}

	if err := c.processor.ForwardFees(ctx, c.feeCollector, items); err != nil {
		c.log.ErrorContext(ctx, "fee forward failed, slice retained", slog.Any("error", err))
	}

	events := make([]AttachmentAdded, 0, len(orders))
	for _, at := range orders {
		c.attachments[ticketID] = append(c.attachments[ticketID], Attachment{Name: at.Name, Amount: at.Amount})
		events = append(events, AttachmentAdded{TicketID: ticketID, Name: at.Name, Amount: at.Amount})
		c.log.InfoContext(ctx, "attachment added",
			slog.Uint64("ticket_id", ticketID),
			slog.String("name", at.Name.String()),
			slog.Uint64("amount", at.Amount),
		)
	}
	return events, nil
}
