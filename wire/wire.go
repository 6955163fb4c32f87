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

// Package wire implements the packed call encoding kept for compatibility
// with existing callers: parallel numeric, address and bytes32 arrays plus
// a concatenated signature blob, with element counts declared by leading
// length fields inside the numeric array itself.
//
// A mismatch between declared and actual counts is a hard decode error
// naming the offending array. Decoding never truncates silently.
package wire

import (
	"errors"
	"fmt"

	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/groups"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/payment"
)

// ErrArgumentCount indicates a packed array whose length disagrees with the
// declared element counts. The message names the offending array.
var ErrArgumentCount = errors.New("argument count mismatch")

// maxCount bounds any single declared count so length arithmetic cannot
// overflow.
const maxCount = 1 << 16

func countErr(array string, want, have int) error {
	return fmt.Errorf("%w: invalid %s (want %d elements, have %d)", ErrArgumentCount, array, want, have)
}

func checkCount(name string, declared uint64) (int, error) {
	if declared >= maxCount {
		return 0, fmt.Errorf("%w: invalid %s (declared count %d too large)", ErrArgumentCount, name, declared)
	}
	return int(declared), nil
}

// TicketOrder is one decoded mint entry: the future ticket owner plus the
// optional signed one-time code gating the sale.
type TicketOrder struct {
	Owner         ident.Address
	Code          uint64
	Authorization []byte
}

// MintCall is the decoded form of a packed mint.
//
// Layout: nums = [P, T, P×(amount, fee), T×code]; addrs = P currencies then
// T owners; sigs = T concatenated 65-byte authorizations, all-zero when the
// entry carries none. Relayed payments are not representable packed; the
// structured API carries those.
type MintCall struct {
	Payments []payment.Item
	Tickets  []TicketOrder
}

// DecodeMint parses a packed mint call.
func DecodeMint(nums []uint64, addrs []ident.Address, sigs []byte) (*MintCall, error) {
	if len(nums) < 2 {
		return nil, countErr("nums", 2, len(nums))
	}
	p, err := checkCount("nums", nums[0])
	if err != nil {
		return nil, err
	}
	t, err := checkCount("nums", nums[1])
	if err != nil {
		return nil, err
	}
	if want := 2 + 2*p + t; len(nums) != want {
		return nil, countErr("nums", want, len(nums))
	}
	if want := p + t; len(addrs) != want {
		return nil, countErr("addr", want, len(addrs))
	}
	auths, err := splitSigs(sigs, t)
	if err != nil {
		return nil, err
	}

	call := &MintCall{
		Payments: make([]payment.Item, 0, p),
		Tickets:  make([]TicketOrder, 0, t),
	}
	for i := 0; i < p; i++ {
		call.Payments = append(call.Payments, payment.Item{
			Currency: addrs[i],
			Amount:   nums[2+2*i],
			Fee:      nums[2+2*i+1],
		})
	}
	for i := 0; i < t; i++ {
		call.Tickets = append(call.Tickets, TicketOrder{
			Owner:         addrs[p+i],
			Code:          nums[2+2*p+i],
			Authorization: auths[i],
		})
	}
	return call, nil
}

// EncodeMint produces the packed arrays for a mint call.
func EncodeMint(call *MintCall) (nums []uint64, addrs []ident.Address, sigs []byte) {
	nums = append(nums, uint64(len(call.Payments)), uint64(len(call.Tickets)))
	for _, it := range call.Payments {
		nums = append(nums, it.Amount, it.Fee)
		addrs = append(addrs, it.Currency)
	}
	for _, tk := range call.Tickets {
		nums = append(nums, tk.Code)
		addrs = append(addrs, tk.Owner)
		sigs = appendSig(sigs, tk.Authorization)
	}
	return nums, addrs, sigs
}

// AttachmentOrder is one decoded attachment entry: a named extra priced in
// the payment list, plus its optional signed code.
type AttachmentOrder struct {
	Name          ident.Bytes32
	Amount        uint64
	Code          uint64
	Authorization []byte
}

// AttachCall is the decoded form of a packed attach.
//
// Layout: nums = [P, A, P×(amount, fee), A×(amount, code)]; addrs = P
// currencies; byteData = A attachment names; sigs = A authorizations.
type AttachCall struct {
	Payments    []payment.Item
	Attachments []AttachmentOrder
}

// DecodeAttach parses a packed attach call.
func DecodeAttach(nums []uint64, addrs []ident.Address, byteData []ident.Bytes32, sigs []byte) (*AttachCall, error) {
	if len(nums) < 2 {
		return nil, countErr("nums", 2, len(nums))
	}
	p, err := checkCount("nums", nums[0])
	if err != nil {
		return nil, err
	}
	a, err := checkCount("nums", nums[1])
	if err != nil {
		return nil, err
	}
	if want := 2 + 2*p + 2*a; len(nums) != want {
		return nil, countErr("nums", want, len(nums))
	}
	if len(addrs) != p {
		return nil, countErr("addr", p, len(addrs))
	}
	if len(byteData) != a {
		return nil, countErr("byte_data", a, len(byteData))
	}
	auths, err := splitSigs(sigs, a)
	if err != nil {
		return nil, err
	}

	call := &AttachCall{
		Payments:    make([]payment.Item, 0, p),
		Attachments: make([]AttachmentOrder, 0, a),
	}
	for i := 0; i < p; i++ {
		call.Payments = append(call.Payments, payment.Item{
			Currency: addrs[i],
			Amount:   nums[2+2*i],
			Fee:      nums[2+2*i+1],
		})
	}
	for i := 0; i < a; i++ {
		call.Attachments = append(call.Attachments, AttachmentOrder{
			Name:          byteData[i],
			Amount:        nums[2+2*p+2*i],
			Code:          nums[2+2*p+2*i+1],
			Authorization: auths[i],
		})
	}
	return call, nil
}

// EncodeAttach produces the packed arrays for an attach call.
func EncodeAttach(call *AttachCall) (nums []uint64, addrs []ident.Address, byteData []ident.Bytes32, sigs []byte) {
	nums = append(nums, uint64(len(call.Payments)), uint64(len(call.Attachments)))
	for _, it := range call.Payments {
		nums = append(nums, it.Amount, it.Fee)
		addrs = append(addrs, it.Currency)
	}
	for _, at := range call.Attachments {
		nums = append(nums, at.Amount, at.Code)
		byteData = append(byteData, at.Name)
		sigs = appendSig(sigs, at.Authorization)
	}
	return nums, addrs, byteData, sigs
}

// DecodeCategories parses a packed category registration batch.
//
// Layout per category i, concatenated after the leading batch count N:
// nums = [N, N×(priceCount Ci, amount, saleStart, saleEnd, resaleStart,
// resaleEnd, Ci×price)]; addrs = N×(authorizationKey, attachmentKey,
// Ci×currency); byteData = N×(name, hierarchy).
func DecodeCategories(nums []uint64, addrs []ident.Address, byteData []ident.Bytes32) ([]groups.Spec, error) {
	if len(nums) < 1 {
		return nil, countErr("nums", 1, len(nums))
	}
	n, err := checkCount("nums", nums[0])
	if err != nil {
		return nil, err
	}
	if want := 2 * n; len(byteData) != want {
		return nil, countErr("byte_data", want, len(byteData))
	}

	specs := make([]groups.Spec, 0, n)
	ni, ai := 1, 0
	for i := 0; i < n; i++ {
		if len(nums)-ni < 6 {
			return nil, countErr("nums", ni+6, len(nums))
		}
		c, err := checkCount("nums", nums[ni])
		if err != nil {
			return nil, err
		}
		sp := groups.Spec{
			Name:        byteData[2*i],
			Hierarchy:   byteData[2*i+1],
			Amount:      nums[ni+1],
			SaleStart:   int64(nums[ni+2]),
			SaleEnd:     int64(nums[ni+3]),
			ResaleStart: int64(nums[ni+4]),
			ResaleEnd:   int64(nums[ni+5]),
		}
		ni += 6
		if len(nums)-ni < c {
			return nil, countErr("nums", ni+c, len(nums))
		}
		if len(addrs)-ai < 2+c {
			return nil, countErr("addr", ai+2+c, len(addrs))
		}
		sp.AuthorizationKey = addrs[ai]
		sp.AttachmentKey = addrs[ai+1]
		ai += 2
		for j := 0; j < c; j++ {
			sp.Prices = append(sp.Prices, groups.Price{
				Currency: addrs[ai+j],
				Amount:   nums[ni+j],
			})
		}
		ni += c
		ai += c
		specs = append(specs, sp)
	}
	if ni != len(nums) {
		return nil, countErr("nums", ni, len(nums))
	}
	if ai != len(addrs) {
		return nil, countErr("addr", ai, len(addrs))
	}
	return specs, nil
}

// EncodeCategories produces the packed arrays for a registration batch.
func EncodeCategories(specs []groups.Spec) (nums []uint64, addrs []ident.Address, byteData []ident.Bytes32) {
	nums = append(nums, uint64(len(specs)))
	for _, sp := range specs {
		nums = append(nums,
			uint64(len(sp.Prices)),
			sp.Amount,
			uint64(sp.SaleStart),
			uint64(sp.SaleEnd),
			uint64(sp.ResaleStart),
			uint64(sp.ResaleEnd),
		)
		addrs = append(addrs, sp.AuthorizationKey, sp.AttachmentKey)
		byteData = append(byteData, sp.Name, sp.Hierarchy)
		for _, p := range sp.Prices {
			nums = append(nums, p.Amount)
			addrs = append(addrs, p.Currency)
		}
	}
	return nums, addrs, byteData
}

func splitSigs(blob []byte, count int) ([][]byte, error) {
	sigs, err := eip712.Split(blob, count)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signatures (%d bytes for %d entries)", ErrArgumentCount, len(blob), count)
	}
	return sigs, nil
}

func appendSig(blob, sig []byte) []byte {
	if len(sig) == 0 {
		return append(blob, make([]byte, eip712.SignatureLen)...)
	}
	return append(blob, sig...)
}
