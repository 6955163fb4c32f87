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

// Package testcontract verifies that a codes.Ledger implementation honors
// the exactly-once contract. Implementors run TestLedgerContract against
// their own constructor.
package testcontract

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticket721/t721controller/codes"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
)

type SetupFunc func(t *testing.T) (codes.Ledger, error)

func TestLedgerContract(t *testing.T, setupFunc SetupFunc) {
	setup := func(t *testing.T) codes.Ledger {
		t.Helper()

		ledger, err := setupFunc(t)
		require.NoError(t, err)

		return ledger
	}

	scopeA := eip712.Keccak256([]byte("scope-a"))
	scopeB := eip712.Keccak256([]byte("scope-b"))

	t.Run("ok, consume fresh code", func(t *testing.T) {
		ledger := setup(t)

		require.NoError(t, ledger.Consume(t.Context(), scopeA, 1))
	})

	t.Run("second consume fails", func(t *testing.T) {
		ledger := setup(t)

		require.NoError(t, ledger.Consume(t.Context(), scopeA, 1))
		require.ErrorIs(t, ledger.Consume(t.Context(), scopeA, 1), codes.ErrAlreadyUsed)
		// Still consumed on the third attempt.
		require.ErrorIs(t, ledger.Consume(t.Context(), scopeA, 1), codes.ErrAlreadyUsed)
	})

	t.Run("scopes are independent", func(t *testing.T) {
		ledger := setup(t)

		require.NoError(t, ledger.Consume(t.Context(), scopeA, 42))
		require.NoError(t, ledger.Consume(t.Context(), scopeB, 42))
		require.ErrorIs(t, ledger.Consume(t.Context(), scopeB, 42), codes.ErrAlreadyUsed)
	})

	t.Run("used is side-effect free", func(t *testing.T) {
		ledger := setup(t)

		used, err := ledger.Used(t.Context(), scopeA, 7)
		require.NoError(t, err)
		require.False(t, used)

		// Probing freshness must not burn the code.
		require.NoError(t, ledger.Consume(t.Context(), scopeA, 7))

		used, err = ledger.Used(t.Context(), scopeA, 7)
		require.NoError(t, err)
		require.True(t, used)
	})

	t.Run("release restores freshness", func(t *testing.T) {
		ledger := setup(t)

		require.NoError(t, ledger.Consume(t.Context(), scopeA, 3))
		require.NoError(t, ledger.Release(t.Context(), scopeA, 3))

		used, err := ledger.Used(t.Context(), scopeA, 3)
		require.NoError(t, err)
		require.False(t, used)
		require.NoError(t, ledger.Consume(t.Context(), scopeA, 3))
	})

	t.Run("release of a fresh pair is a no-op", func(t *testing.T) {
		ledger := setup(t)

		require.NoError(t, ledger.Release(t.Context(), scopeA, 3))
		require.NoError(t, ledger.Consume(t.Context(), scopeA, 3))
	})

	t.Run("release touches only its own pair", func(t *testing.T) {
		ledger := setup(t)

		require.NoError(t, ledger.Consume(t.Context(), scopeA, 4))
		require.NoError(t, ledger.Consume(t.Context(), scopeB, 4))
		require.NoError(t, ledger.Release(t.Context(), scopeA, 4))
		require.ErrorIs(t, ledger.Consume(t.Context(), scopeB, 4), codes.ErrAlreadyUsed)
	})

	t.Run("distinct codes under one scope", func(t *testing.T) {
		ledger := setup(t)

		for code := uint64(1); code <= 10; code++ {
			require.NoError(t, ledger.Consume(t.Context(), scopeA, code))
		}
		for code := uint64(1); code <= 10; code++ {
			require.ErrorIs(t, ledger.Consume(t.Context(), scopeA, code), codes.ErrAlreadyUsed)
		}
	})
}

// TestScopeDerivation checks the scope helper keeps authorizers apart.
func TestScopeDerivation(t *testing.T, group ident.Hash, a, b ident.Address) {
	require.Equal(t, codes.Scope(group, a), codes.Scope(group, a))
	require.NotEqual(t, codes.Scope(group, a), codes.Scope(group, b))
}
