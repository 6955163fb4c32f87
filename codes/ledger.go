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

// Package codes tracks consumed one-time authorization codes. Every signed
// authorization carries a numeric code; consuming it exactly once is what
// prevents a captured signature from being replayed.
package codes

import (
	"context"
	"errors"

	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
)

// ErrAlreadyUsed indicates a (scope, code) pair that was consumed before.
//
// Must be returned by every Ledger implementation on the second and any
// later Consume of the same pair.
var ErrAlreadyUsed = errors.New("duplicate code")

// Ledger records consumed authorization codes per scope.
//
// To conform to this contract, implementations:
//   - Must consume a fresh (scope, code) pair exactly once: the first
//     Consume succeeds, every later Consume of the same pair returns
//     [ErrAlreadyUsed].
//   - Must keep scopes independent: the same code under two scopes is two
//     separate pairs.
//   - Must make Used side-effect free, so dry-run verification can probe
//     freshness without burning the code.
//   - Must make Release the only path back to fresh: a released pair is
//     consumable again, and releasing a fresh pair is a no-op.
type Ledger interface {
	// Consume marks (scope, code) as used.
	Consume(ctx context.Context, scope ident.Hash, code uint64) error
	// Release marks (scope, code) fresh again. The controller calls it
	// only to revert codes consumed by a settlement that failed partway.
	Release(ctx context.Context, scope ident.Hash, code uint64) error
	// Used reports whether (scope, code) has been consumed.
	Used(ctx context.Context, scope ident.Hash, code uint64) (bool, error)
}

// Scope derives the consumption scope for codes authorized by a given
// signer on behalf of a group. Scoping by both keeps one authorizer's code
// space from colliding with another's inside the same group.
func Scope(group ident.Hash, signer ident.Address) ident.Hash {
	return eip712.Keccak256(group[:], signer[:])
}
