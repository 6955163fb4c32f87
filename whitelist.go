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
	"log/slog"

	"github.com/ticket721/t721controller/currency"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/internal/otelutil"
)

// SetFeeCollector changes the destination of every future fee slice.
// Contract owner only; the zero address is rejected.
func (c *Controller) SetFeeCollector(ctx context.Context, caller, collector ident.Address) error {
	_, span := otelutil.Tracer.Start(ctx, "controller.SetFeeCollector")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwner(caller); err != nil {
		return otelutil.RecordError(span, opErr("setFeeCollector", err))
	}
	if collector == (ident.Address{}) {
		return otelutil.RecordError(span, opErr("setFeeCollector", ErrInvalidCollector))
	}
	c.feeCollector = collector
	c.log.InfoContext(ctx, "fee collector updated", slog.String("collector", collector.String()))
	return nil
}

// WhitelistCurrency authorizes a currency for payments under a fee
// schedule. Contract owner only; re-whitelisting overwrites the schedule.
func (c *Controller) WhitelistCurrency(ctx context.Context, caller, cur ident.Address, entry currency.Entry) error {
	_, span := otelutil.Tracer.Start(ctx, "controller.WhitelistCurrency")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwner(caller); err != nil {
		return otelutil.RecordError(span, opErr("whitelistCurrency", err))
	}
	if err := c.whitelist.Add(cur, entry); err != nil {
		return otelutil.RecordError(span, opErr("whitelistCurrency", err))
	}
	c.log.InfoContext(ctx, "currency whitelisted",
		slog.String("currency", cur.String()),
		slog.String("kind", entry.Kind.String()),
		slog.Uint64("fixed_fee", entry.FixedFee),
		slog.Uint64("percent_fee", entry.PercentFee),
	)
	return nil
}

// RemoveCurrency deauthorizes a currency. Contract owner only; removing an
// absent entry fails.
func (c *Controller) RemoveCurrency(ctx context.Context, caller, cur ident.Address) error {
	_, span := otelutil.Tracer.Start(ctx, "controller.RemoveCurrency")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwner(caller); err != nil {
		return otelutil.RecordError(span, opErr("removeCurrency", err))
	}
	if err := c.whitelist.Remove(cur); err != nil {
		return otelutil.RecordError(span, opErr("removeCurrency", err))
	}
	c.log.InfoContext(ctx, "currency removed", slog.String("currency", cur.String()))
	return nil
}

// GetFee computes the fee the schedule charges on a gross amount.
func (c *Controller) GetFee(cur ident.Address, gross uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fee, err := c.whitelist.Fee(cur, gross)
	if err != nil {
		return 0, opErr("getFee", err)
	}
	return fee, nil
}
