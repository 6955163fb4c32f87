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
	"github.com/ticket721/t721controller/groups"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/internal/otelutil"
	"github.com/ticket721/t721controller/payment"
)

// WithdrawRequest moves collected funds out of a group's balance. It is
// relayable: any caller may submit it, authority comes from the group
// owner's signature, and the group id is recomputed from (Emitter, UUID)
// rather than trusted from the payload.
type WithdrawRequest struct {
	Emitter  ident.Address
	UUID     string
	Currency ident.Address
	Amount   uint64
	Target   ident.Address
	Code     uint64
	// Signature is the emitter's 65-byte signature over the withdrawal
	// binding.
	Signature []byte
}

type withdrawPlan struct {
	groupID ident.Hash
	use     codeUse
}

// Withdraw validates a withdrawal in full, consumes its one-time code,
// debits the group's balance and transfers the funds to the target.
func (c *Controller) Withdraw(ctx context.Context, req WithdrawRequest) (FundsWithdrawn, error) {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.Withdraw")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	plan, err := c.planWithdraw(ctx, req)
	if err != nil {
		return FundsWithdrawn{}, otelutil.RecordError(span, opErr("withdraw", err))
	}
	ev, err := c.applyWithdraw(ctx, req, plan)
	if err != nil {
		return FundsWithdrawn{}, otelutil.RecordError(span, opErr("withdraw", err))
	}
	return ev, nil
}

// VerifyWithdraw runs every withdrawal validation without moving funds or
// mutating state.
func (c *Controller) VerifyWithdraw(ctx context.Context, req WithdrawRequest) error {
	ctx, span := otelutil.Tracer.Start(ctx, "controller.VerifyWithdraw")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.planWithdraw(ctx, req); err != nil {
		return otelutil.RecordError(span, opErr("verifyWithdraw", err))
	}
	return nil
}

func (c *Controller) planWithdraw(ctx context.Context, req WithdrawRequest) (*withdrawPlan, error) {
	if req.Target == (ident.Address{}) {
		return nil, ErrInvalidTarget
	}

	groupID := groups.UUIDID(req.Emitter, req.UUID)
	g, err := c.groups.Get(groupID)
	if err != nil {
		return nil, err
	}
	if g.Owner != req.Emitter {
		return nil, fmt.Errorf("%w: group owned by %s", ErrGroupMismatch, g.Owner)
	}

	binding := WithdrawBinding(groupID, req.Currency, req.Amount, req.Target, req.Code)
	if err := c.verifyAuthorization(req.Emitter, req.Target, binding, req.Signature); err != nil {
		return nil, err
	}

	if have := c.balances.Balance(groupID, req.Currency); have < req.Amount {
		return nil, fmt.Errorf("%w: have %d, want %d", payment.ErrBalanceTooLow, have, req.Amount)
	}

	use := codeUse{scope: codes.Scope(groupID, req.Emitter), code: req.Code}
	used, err := c.codes.Used(ctx, use.scope, use.code)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, codes.ErrAlreadyUsed
	}
	return &withdrawPlan{groupID: groupID, use: use}, nil
}

// applyWithdraw settles a planned withdrawal. The outbound transfer runs
// last; if it fails, the code consumption and the debit are unwound.
func (c *Controller) applyWithdraw(ctx context.Context, req WithdrawRequest, plan *withdrawPlan) (FundsWithdrawn, error) {
	releaseCode := func() {
		if err := c.codes.Release(ctx, plan.use.scope, plan.use.code); err != nil {
			c.log.ErrorContext(ctx, "unwind release failed",
				slog.Uint64("code", plan.use.code), slog.Any("error", err))
		}
	}

	if err := c.codes.Consume(ctx, plan.use.scope, plan.use.code); err != nil {
		return FundsWithdrawn{}, err
	}
	if err := c.balances.Debit(plan.groupID, req.Currency, req.Amount); err != nil {
		releaseCode()
		return FundsWithdrawn{}, err
	}

	tok, err := c.directory.Fungible(ctx, req.Currency)
	if err == nil {
		if terr := tok.Transfer(ctx, c.self, req.Target, req.Amount); terr != nil {
			err = fmt.Errorf("%w: %v", payment.ErrTransferFailed, terr)
		}
	}
	if err != nil {
		c.balances.Credit(plan.groupID, req.Currency, req.Amount)
		releaseCode()
		return FundsWithdrawn{}, err
	}

	ev := FundsWithdrawn{
		GroupID:  plan.groupID,
		Currency: req.Currency,
		Amount:   req.Amount,
		Target:   req.Target,
	}
	c.log.InfoContext(ctx, "funds withdrawn",
		slog.String("group_id", plan.groupID.String()),
		slog.String("currency", req.Currency.String()),
		slog.Uint64("amount", req.Amount),
		slog.String("target", req.Target.String()),
	)
	return ev, nil
}
