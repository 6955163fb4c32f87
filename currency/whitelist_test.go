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

package currency_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticket721/t721controller/currency"
	"github.com/ticket721/t721controller/ident"
)

func addr(last byte) ident.Address {
	var a ident.Address
	a[19] = last
	return a
}

func TestFeePercentage(t *testing.T) {
	w := currency.NewWhitelist()
	require.NoError(t, w.Add(addr(1), currency.Entry{Kind: currency.KindDirect, FixedFee: 0, PercentFee: 10}))

	fee, err := w.Fee(addr(1), 100)
	require.NoError(t, err)
	require.Equal(t, uint64(10), fee)

	fee, err = w.Fee(addr(1), 505)
	require.NoError(t, err)
	require.Equal(t, uint64(50), fee) // floor(505*10/100)
}

func TestFeeFixedFloor(t *testing.T) {
	w := currency.NewWhitelist()
	require.NoError(t, w.Add(addr(1), currency.Entry{Kind: currency.KindDirect, FixedFee: 10, PercentFee: 10}))

	// Percentage below the fixed fee: the fixed fee wins.
	fee, err := w.Fee(addr(1), 50)
	require.NoError(t, err)
	require.Equal(t, uint64(10), fee)

	// Percentage above the fixed fee.
	fee, err = w.Fee(addr(1), 500)
	require.NoError(t, err)
	require.Equal(t, uint64(50), fee)
}

func TestFeeUnderFixedFails(t *testing.T) {
	w := currency.NewWhitelist()
	require.NoError(t, w.Add(addr(1), currency.Entry{Kind: currency.KindDirect, FixedFee: 10, PercentFee: 10}))

	_, err := w.Fee(addr(1), 9)
	require.ErrorIs(t, err, currency.ErrFeeExceedsAmount)
}

func TestFeeUnwhitelisted(t *testing.T) {
	w := currency.NewWhitelist()
	_, err := w.Fee(addr(9), 100)
	require.ErrorIs(t, err, currency.ErrUnwhitelisted)
}

func TestAddOverwrites(t *testing.T) {
	w := currency.NewWhitelist()
	require.NoError(t, w.Add(addr(1), currency.Entry{Kind: currency.KindDirect, PercentFee: 10}))
	require.NoError(t, w.Add(addr(1), currency.Entry{Kind: currency.KindDirect, PercentFee: 20}))

	fee, err := w.Fee(addr(1), 100)
	require.NoError(t, err)
	require.Equal(t, uint64(20), fee)
}

func TestAddInvalidKind(t *testing.T) {
	w := currency.NewWhitelist()
	require.ErrorIs(t, w.Add(addr(1), currency.Entry{PercentFee: 10}), currency.ErrInvalidKind)
}

func TestRemove(t *testing.T) {
	w := currency.NewWhitelist()

	require.ErrorIs(t, w.Remove(addr(1)), currency.ErrUselessOperation)

	require.NoError(t, w.Add(addr(1), currency.Entry{Kind: currency.KindRelayed, PercentFee: 5}))
	require.True(t, w.Contains(addr(1)))

	require.NoError(t, w.Remove(addr(1)))
	require.False(t, w.Contains(addr(1)))

	require.ErrorIs(t, w.Remove(addr(1)), currency.ErrUselessOperation)
}
