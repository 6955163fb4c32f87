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

import "github.com/ticket721/t721controller/ident"

// GroupCreated is emitted once per group registration.
type GroupCreated struct {
	GroupID     ident.Hash
	Owner       ident.Address
	Controllers string
}

// CategoryRegistered is emitted once per category of a registration batch,
// carrying the index the category was assigned.
type CategoryRegistered struct {
	GroupID ident.Hash
	Index   uint32
	Name    ident.Bytes32
}

// TicketMinted is emitted once per minted ticket, in submitted order.
type TicketMinted struct {
	GroupID      ident.Hash
	CategoryName ident.Bytes32
	Owner        ident.Address
	Buyer        ident.Address
	TicketID     uint64
}

// AttachmentAdded is emitted once per attachment bound to a ticket.
type AttachmentAdded struct {
	TicketID uint64
	Name     ident.Bytes32
	Amount   uint64
}

// FundsWithdrawn is emitted when a group's balance leaves the controller.
type FundsWithdrawn struct {
	GroupID  ident.Hash
	Currency ident.Address
	Amount   uint64
	Target   ident.Address
}
