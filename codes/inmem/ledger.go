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

// Package inmem provides the in-memory code ledger used when the controller
// runs against the host ledger's native state.
package inmem

import (
	"context"
	"sync"

	"github.com/ticket721/t721controller/codes"
	"github.com/ticket721/t721controller/ident"
)

type pair struct {
	scope ident.Hash
	code  uint64
}

// Ledger is an in-memory codes.Ledger. Safe for concurrent use.
type Ledger struct {
	mu   sync.Mutex
	used map[pair]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		used: make(map[pair]struct{}),
	}
}

func (l *Ledger) Consume(ctx context.Context, scope ident.Hash, code uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := pair{scope: scope, code: code}
	if _, ok := l.used[key]; ok {
		return codes.ErrAlreadyUsed
	}
	l.used[key] = struct{}{}
	return nil
}

func (l *Ledger) Release(ctx context.Context, scope ident.Hash, code uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.used, pair{scope: scope, code: code})
	return nil
}

func (l *Ledger) Used(ctx context.Context, scope ident.Hash, code uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.used[pair{scope: scope, code: code}]
	return ok, nil
}
