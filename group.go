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
	"log/slog"

	"github.com/ticket721/t721controller/groups"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/internal/otelutil"
)

// CreateGroup registers a new group owned by the caller; the id derives
// from the caller's creation sequence.
func (c *Controller) CreateGroup(ctx context.Context, caller ident.Address, controllers string) (GroupCreated, error) {
	_, span := otelutil.Tracer.Start(ctx, "controller.CreateGroup")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.groups.Create(caller, controllers)
	if err != nil {
		return GroupCreated{}, otelutil.RecordError(span, opErr("createGroup", err))
	}
	ev := GroupCreated{GroupID: g.ID, Owner: g.Owner, Controllers: g.Controllers}
	c.log.InfoContext(ctx, "group created",
		slog.String("group_id", g.ID.String()),
		slog.String("owner", g.Owner.String()),
	)
	return ev, nil
}

// CreateGroupWithUUID registers a new group whose id derives from a
// caller-supplied uuid instead of the sequence.
func (c *Controller) CreateGroupWithUUID(ctx context.Context, caller ident.Address, controllers, uuid string) (GroupCreated, error) {
	_, span := otelutil.Tracer.Start(ctx, "controller.CreateGroupWithUUID")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.groups.CreateWithUUID(caller, controllers, uuid)
	if err != nil {
		return GroupCreated{}, otelutil.RecordError(span, opErr("createGroup", err))
	}
	ev := GroupCreated{GroupID: g.ID, Owner: g.Owner, Controllers: g.Controllers}
	c.log.InfoContext(ctx, "group created",
		slog.String("group_id", g.ID.String()),
		slog.String("owner", g.Owner.String()),
	)
	return ev, nil
}

// NextGroupID predicts the id the caller's next CreateGroup will assign.
func (c *Controller) NextGroupID(caller ident.Address) ident.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groups.NextID(caller)
}

// GroupIDForUUID derives the id CreateGroupWithUUID assigns for a uuid.
func (c *Controller) GroupIDForUUID(owner ident.Address, uuid string) ident.Hash {
	return groups.UUIDID(owner, uuid)
}

// AddAdmin grants group admin rights. Group owner only.
func (c *Controller) AddAdmin(ctx context.Context, caller ident.Address, groupID ident.Hash, admin ident.Address) error {
	_, span := otelutil.Tracer.Start(ctx, "controller.AddAdmin")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.groups.AddAdmin(caller, groupID, admin); err != nil {
		return otelutil.RecordError(span, opErr("addAdmin", err))
	}
	return nil
}

// RemoveAdmin revokes group admin rights. Group owner only.
func (c *Controller) RemoveAdmin(ctx context.Context, caller ident.Address, groupID ident.Hash, admin ident.Address) error {
	_, span := otelutil.Tracer.Start(ctx, "controller.RemoveAdmin")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.groups.RemoveAdmin(caller, groupID, admin); err != nil {
		return otelutil.RecordError(span, opErr("removeAdmin", err))
	}
	return nil
}

// RegisterCategories appends a validated batch of categories to a group and
// emits one event per category with its assigned index. Owner or admin.
func (c *Controller) RegisterCategories(ctx context.Context, caller ident.Address, groupID ident.Hash, specs []groups.Spec) ([]CategoryRegistered, error) {
	_, span := otelutil.Tracer.Start(ctx, "controller.RegisterCategories")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	indices, err := c.groups.RegisterCategories(caller, groupID, specs)
	if err != nil {
		return nil, otelutil.RecordError(span, opErr("registerCategories", err))
	}

	events := make([]CategoryRegistered, 0, len(indices))
	for i, idx := range indices {
		events = append(events, CategoryRegistered{
			GroupID: groupID,
			Index:   idx,
			Name:    specs[i].Name,
		})
		c.log.InfoContext(ctx, "category registered",
			slog.String("group_id", groupID.String()),
			slog.Uint64("index", uint64(idx)),
			slog.String("name", specs[i].Name.String()),
		)
	}
	return events, nil
}

// EditCategory replaces all fields of a category except its name and sold
// counter. Owner or admin; every priced currency must be whitelisted.
func (c *Controller) EditCategory(ctx context.Context, caller ident.Address, groupID ident.Hash, idx uint32, sp groups.Spec) error {
	_, span := otelutil.Tracer.Start(ctx, "controller.EditCategory")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.groups.EditCategory(caller, groupID, idx, sp, c.whitelist.Contains); err != nil {
		return otelutil.RecordError(span, opErr("editCategory", err))
	}
	return nil
}

// Category returns a copy of a group's idx-th category.
func (c *Controller) Category(groupID ident.Hash, idx uint32) (groups.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cat, err := c.groups.Category(groupID, idx)
	if err != nil {
		return groups.Category{}, opErr("getCategory", err)
	}
	return cat, nil
}

// CategoryPrice returns the price of a category in a currency.
func (c *Controller) CategoryPrice(groupID ident.Hash, idx uint32, cur ident.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	price, err := c.groups.CategoryPrice(groupID, idx, cur)
	if err != nil {
		return 0, opErr("getCategoryPrice", err)
	}
	return price, nil
}
