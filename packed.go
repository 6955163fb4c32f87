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

	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/wire"
)

// Packed variants keep wire compatibility with callers still assembling the
// flat array encoding. They decode and delegate to the structured methods;
// decode failures carry the same operation namespace as the operation they
// would have run.

// MintPacked decodes a packed mint call and runs Mint.
func (c *Controller) MintPacked(ctx context.Context, caller ident.Address, groupID ident.Hash, category uint32, nums []uint64, addrs []ident.Address, sigs []byte) (MintResult, error) {
	call, err := wire.DecodeMint(nums, addrs, sigs)
	if err != nil {
		return MintResult{}, opErr("mint", err)
	}

	req := MintRequest{
		GroupID:  groupID,
		Category: category,
		Payments: call.Payments,
		Tickets:  make([]TicketOrder, 0, len(call.Tickets)),
	}
	for _, tk := range call.Tickets {
		req.Tickets = append(req.Tickets, TicketOrder{
			Owner:         tk.Owner,
			Code:          tk.Code,
			Authorization: tk.Authorization,
		})
	}
	return c.Mint(ctx, caller, req)
}

// AttachPacked decodes a packed attach call and runs Attach.
func (c *Controller) AttachPacked(ctx context.Context, caller ident.Address, ticketID uint64, nums []uint64, addrs []ident.Address, byteData []ident.Bytes32, sigs []byte) ([]AttachmentAdded, error) {
	call, err := wire.DecodeAttach(nums, addrs, byteData, sigs)
	if err != nil {
		return nil, attachErr("attach", err)
	}
	return c.Attach(ctx, caller, AttachRequest{
		TicketID:    ticketID,
		Payments:    call.Payments,
		Attachments: attachmentOrders(call.Attachments),
	})
}

// FixAttachmentsPacked decodes a packed attach call and runs
// FixAttachments.
func (c *Controller) FixAttachmentsPacked(ctx context.Context, caller ident.Address, groupID ident.Hash, category uint32, ticketID uint64, nums []uint64, addrs []ident.Address, byteData []ident.Bytes32, sigs []byte) ([]AttachmentAdded, error) {
	call, err := wire.DecodeAttach(nums, addrs, byteData, sigs)
	if err != nil {
		return nil, attachErr("fixAttachments", err)
	}
	return c.FixAttachments(ctx, caller, FixRequest{
		GroupID:     groupID,
		Category:    category,
		TicketID:    ticketID,
		Payments:    call.Payments,
		Attachments: attachmentOrders(call.Attachments),
	})
}

// RegisterCategoriesPacked decodes a packed registration batch and runs
// RegisterCategories.
func (c *Controller) RegisterCategoriesPacked(ctx context.Context, caller ident.Address, groupID ident.Hash, nums []uint64, addrs []ident.Address, byteData []ident.Bytes32) ([]CategoryRegistered, error) {
	specs, err := wire.DecodeCategories(nums, addrs, byteData)
	if err != nil {
		return nil, opErr("registerCategories", err)
	}
	return c.RegisterCategories(ctx, caller, groupID, specs)
}

func attachmentOrders(in []wire.AttachmentOrder) []AttachmentOrder {
	out := make([]AttachmentOrder, 0, len(in))
	for _, at := range in {
		out = append(out, AttachmentOrder{
			Name:          at.Name,
			Amount:        at.Amount,
			Code:          at.Code,
			Authorization: at.Authorization,
		})
	}
	return out
}
