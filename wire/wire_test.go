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

package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/groups"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/payment"
	"github.com/ticket721/t721controller/wire"
)

func addr(last byte) ident.Address {
	var a ident.Address
	a[19] = last
	return a
}

func sig(fill byte) []byte {
	s := make([]byte, eip712.SignatureLen)
	for i := range s {
		s[i] = fill
	}
	return s
}

func TestMintRoundTrip(t *testing.T) {
	call := &wire.MintCall{
		Payments: []payment.Item{
			{Currency: addr(0xd1), Amount: 500, Fee: 50},
			{Currency: addr(0xd2), Amount: 300, Fee: 30},
		},
		Tickets: []wire.TicketOrder{
			{Owner: addr(0x01), Code: 7, Authorization: sig(0xaa)},
			{Owner: addr(0x02)},
		},
	}

	nums, addrs, sigs := wire.EncodeMint(call)
	decoded, err := wire.DecodeMint(nums, addrs, sigs)
	require.NoError(t, err)

	require.Equal(t, call.Payments, decoded.Payments)
	require.Len(t, decoded.Tickets, 2)
	require.Equal(t, call.Tickets[0], decoded.Tickets[0])
	require.Equal(t, addr(0x02), decoded.Tickets[1].Owner)
	// Absent authorizations decode as all-zero 65-byte slots.
	require.True(t, eip712.IsZero(decoded.Tickets[1].Authorization))
}

func TestMintDecodeErrors(t *testing.T) {
	call := &wire.MintCall{
		Payments: []payment.Item{{Currency: addr(0xd1), Amount: 500, Fee: 50}},
		Tickets:  []wire.TicketOrder{{Owner: addr(0x01), Code: 7}},
	}
	nums, addrs, sigs := wire.EncodeMint(call)

	cases := []struct {
		name string
		run  func() error
		want string
	}{
		{"empty nums", func() error {
			_, err := wire.DecodeMint(nil, addrs, sigs)
			return err
		}, "invalid nums"},
		{"truncated nums", func() error {
			_, err := wire.DecodeMint(nums[:len(nums)-1], addrs, sigs)
			return err
		}, "invalid nums"},
		{"extra nums", func() error {
			_, err := wire.DecodeMint(append(append([]uint64(nil), nums...), 9), addrs, sigs)
			return err
		}, "invalid nums"},
		{"missing addr", func() error {
			_, err := wire.DecodeMint(nums, addrs[:1], sigs)
			return err
		}, "invalid addr"},
		{"short signatures", func() error {
			_, err := wire.DecodeMint(nums, addrs, sigs[:64])
			return err
		}, "invalid signatures"},
		{"oversized count", func() error {
			bad := append([]uint64(nil), nums...)
			bad[1] = 1 << 40
			_, err := wire.DecodeMint(bad, addrs, sigs)
			return err
		}, "invalid nums"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.ErrorIs(t, err, wire.ErrArgumentCount)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestAttachRoundTrip(t *testing.T) {
	call := &wire.AttachCall{
		Payments: []payment.Item{{Currency: addr(0xd1), Amount: 90, Fee: 9}},
		Attachments: []wire.AttachmentOrder{
			{Name: ident.MustLabel("backstage"), Amount: 90, Code: 3, Authorization: sig(0xbb)},
		},
	}

	nums, addrs, byteData, sigs := wire.EncodeAttach(call)
	decoded, err := wire.DecodeAttach(nums, addrs, byteData, sigs)
	require.NoError(t, err)
	require.Equal(t, call, decoded)
}

func TestAttachDecodeErrors(t *testing.T) {
	call := &wire.AttachCall{
		Payments:    []payment.Item{{Currency: addr(0xd1), Amount: 90, Fee: 9}},
		Attachments: []wire.AttachmentOrder{{Name: ident.MustLabel("vip"), Amount: 90, Code: 3}},
	}
	nums, addrs, byteData, sigs := wire.EncodeAttach(call)

	_, err := wire.DecodeAttach(nums, addrs, nil, sigs)
	require.ErrorIs(t, err, wire.ErrArgumentCount)
	require.ErrorContains(t, err, "invalid byte_data")

	_, err = wire.DecodeAttach(nums, nil, byteData, sigs)
	require.ErrorContains(t, err, "invalid addr")

	_, err = wire.DecodeAttach(nums[:3], addrs, byteData, sigs)
	require.ErrorContains(t, err, "invalid nums")
}

func TestCategoriesRoundTrip(t *testing.T) {
	specs := []groups.Spec{
		{
			Name:             ident.MustLabel("early-bird"),
			Hierarchy:        ident.MustLabel("standard"),
			Amount:           100,
			SaleStart:        1_700_000_000,
			SaleEnd:          1_700_086_400,
			ResaleStart:      1_700_086_400,
			ResaleEnd:        1_700_172_800,
			AuthorizationKey: addr(0xa1),
			AttachmentKey:    addr(0xa2),
			Prices: []groups.Price{
				{Currency: addr(0xd1), Amount: 500},
				{Currency: addr(0xd2), Amount: 300},
			},
		},
		{
			Name:      ident.MustLabel("free"),
			Hierarchy: ident.MustLabel("standard"),
			Amount:    10,
			SaleStart: 1_700_000_000,
			SaleEnd:   1_700_086_400,
			ResaleEnd: 1,
		},
	}

	nums, addrs, byteData := wire.EncodeCategories(specs)
	decoded, err := wire.DecodeCategories(nums, addrs, byteData)
	require.NoError(t, err)
	require.Equal(t, specs, decoded)
}

func TestCategoriesDecodeErrors(t *testing.T) {
	nums, addrs, byteData := wire.EncodeCategories([]groups.Spec{{
		Name:      ident.MustLabel("a"),
		Hierarchy: ident.MustLabel("h"),
		Amount:    1,
		SaleEnd:   2,
		ResaleEnd: 1,
		Prices:    []groups.Price{{Currency: addr(0xd1), Amount: 5}},
	}})

	_, err := wire.DecodeCategories(nums, addrs, byteData[:1])
	require.ErrorContains(t, err, "invalid byte_data")

	_, err = wire.DecodeCategories(nums, addrs[:2], byteData)
	require.ErrorContains(t, err, "invalid addr")

	_, err = wire.DecodeCategories(nums[:4], addrs, byteData)
	require.ErrorContains(t, err, "invalid nums")

	_, err = wire.DecodeCategories(append(append([]uint64(nil), nums...), 3), addrs, byteData)
	require.ErrorContains(t, err, "invalid nums")

	_, err = wire.DecodeCategories(nil, addrs, byteData)
	require.ErrorIs(t, err, wire.ErrArgumentCount)
}
