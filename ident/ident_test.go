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

package ident_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticket721/t721controller/ident"
)

func TestParseAddress(t *testing.T) {
	a, err := ident.ParseAddress("0x00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	require.Equal(t, byte(0xff), a[19])
	require.False(t, a.IsZero())

	_, err = ident.ParseAddress("0x1234")
	require.ErrorIs(t, err, ident.ErrInvalidAddress)

	_, err = ident.ParseAddress("not hex")
	require.ErrorIs(t, err, ident.ErrInvalidAddress)

	zero, err := ident.ParseAddress("0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}

func TestAddressRoundTrip(t *testing.T) {
	a, err := ident.ParseAddress("0x00112233445566778899aabbccddeeff00112233")
	require.NoError(t, err)

	back, err := ident.ParseAddress(a.String())
	require.NoError(t, err)
	require.Equal(t, a, back)
}

func TestHashFromBytes(t *testing.T) {
	_, err := ident.HashFromBytes(make([]byte, 31))
	require.ErrorIs(t, err, ident.ErrInvalidHash)

	h, err := ident.HashFromBytes(make([]byte, 32))
	require.NoError(t, err)
	require.True(t, h.IsZero())
}

func TestLabel(t *testing.T) {
	b, err := ident.Label("regular")
	require.NoError(t, err)
	require.Equal(t, "regular", b.String())
	require.False(t, b.IsZero())

	_, err = ident.Label("this category name is way longer than thirty two bytes")
	require.Error(t, err)

	require.True(t, ident.Bytes32{}.IsZero())
}
