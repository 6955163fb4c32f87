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
	"log/slog"
	"time"

	"github.com/ticket721/t721controller/codes"
)

type Option func(c *Controller, config *Config) error

// WithClock overrides the time source used for sale window checks. Should
// really only be used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller, _ *Config) error {
		c.now = now
		return nil
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Controller, _ *Config) error {
		c.log = log
		return nil
	}
}

// WithCodeLedger overrides the in-memory one-time code ledger, for hosts
// that persist consumed codes elsewhere.
func WithCodeLedger(ledger codes.Ledger) Option {
	return func(c *Controller, _ *Config) error {
		c.codes = ledger
		return nil
	}
}

// WithFeeCollector overrides the configured fee collector.
func WithFeeCollector(collector string) Option {
	return func(_ *Controller, config *Config) error {
		config.FeeCollector = collector
		return nil
	}
}
