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

// Package groups owns the group registry and the per-group ticket
// categories: who runs a group, what it sells, when, and for how much.
package groups

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
)

var (
	// ErrUnknownGroup indicates a group id with no registry entry.
	ErrUnknownGroup = errors.New("unknown group")

	// ErrGroupExists indicates an id collision on creation. Group entries
	// are append-only and never overwritten.
	ErrGroupExists = errors.New("group already exists")

	// ErrUnauthorized indicates a caller without the owner or admin rights
	// the operation demands.
	ErrUnauthorized = errors.New("unauthorized account")

	// ErrAlreadyAdmin indicates adding an identity that is already an
	// admin of the group.
	ErrAlreadyAdmin = errors.New("already admin")

	// ErrNotAdmin indicates removing an identity that is not an admin.
	ErrNotAdmin = errors.New("not admin")

	// ErrInvalidUUID indicates a caller-supplied group uuid that does not
	// parse as an RFC 4122 uuid.
	ErrInvalidUUID = errors.New("invalid uuid")
)

// Group is one issuing namespace: an owner, a free-form controllers
// descriptor and a set of delegated admins.
type Group struct {
	ID          ident.Hash
	Owner       ident.Address
	Controllers string

	admins     map[ident.Address]struct{}
	categories []*Category
}

// IsAdmin reports whether id is a delegated admin of the group.
func (g *Group) IsAdmin(id ident.Address) bool {
	_, ok := g.admins[id]
	return ok
}

// CanManage reports whether id may register or edit categories: the owner
// or any admin.
func (g *Group) CanManage(id ident.Address) bool {
	return id == g.Owner || g.IsAdmin(id)
}

// Store is the group and category registry. Safe for concurrent use; the
// controller additionally serializes calls, so every check inside one call
// sees a consistent snapshot.
type Store struct {
	mu     sync.Mutex
	groups map[ident.Hash]*Group
	seq    map[ident.Address]uint64
	now    func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		groups: make(map[ident.Hash]*Group),
		seq:    make(map[ident.Address]uint64),
		now:    now,
	}
}

// SequenceID derives the deterministic id for owner's n-th created group.
func SequenceID(owner ident.Address, seq uint64) ident.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], seq)
	return eip712.Keccak256([]byte("grp:seq:"), owner[:], n[:])
}

// UUIDID derives the deterministic id for a caller-supplied uuid. The same
// derivation is recomputed by the withdraw flow from the signed payload.
func UUIDID(owner ident.Address, uuid string) ident.Hash {
	return eip712.Keccak256([]byte("grp:uuid:"), owner[:], []byte(uuid))
}

// NextID returns the id the next Create call by owner will assign, given no
// intervening creation. Pure lookahead for off-ledger callers.
func (s *Store) NextID(owner ident.Address) ident.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SequenceID(owner, s.seq[owner])
}

// Create registers a new group owned by owner with a sequence-derived id.
func (s *Store) Create(owner ident.Address, controllers string) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := SequenceID(owner, s.seq[owner])
	g, err := s.insert(id, owner, controllers)
	if err != nil {
		return nil, err
	}
	s.seq[owner]++
	return g, nil
}

// CreateWithUUID registers a new group whose id derives from the caller's
// uuid instead of the sequence counter.
func (s *Store) CreateWithUUID(owner ident.Address, controllers, id string) (*Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUUID, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(UUIDID(owner, id), owner, controllers)
}

func (s *Store) insert(id ident.Hash, owner ident.Address, controllers string) (*Group, error) {
	if _, ok := s.groups[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupExists, id)
	}
	g := &Group{
		ID:          id,
		Owner:       owner,
		Controllers: controllers,
		admins:      make(map[ident.Address]struct{}),
	}
	s.groups[id] = g
	return g, nil
}

// Get returns the group registered under id.
func (s *Store) Get(id ident.Hash) (*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *Store) get(id ident.Hash) (*Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, id)
	}
	return g, nil
}

// AddAdmin grants admin rights. Owner only; granting twice is rejected.
func (s *Store) AddAdmin(caller ident.Address, id ident.Hash, admin ident.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.get(id)
	if err != nil {
		return err
	}
	if caller != g.Owner {
		return ErrUnauthorized
	}
	if _, ok := g.admins[admin]; ok {
		return ErrAlreadyAdmin
	}
	g.admins[admin] = struct{}{}
	return nil
}

// RemoveAdmin revokes admin rights. Owner only; revoking a non-admin is
// rejected.
func (s *Store) RemoveAdmin(caller ident.Address, id ident.Hash, admin ident.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.get(id)
	if err != nil {
		return err
	}
	if caller != g.Owner {
		return ErrUnauthorized
	}
	if _, ok := g.admins[admin]; !ok {
		return ErrNotAdmin
	}
	delete(g.admins, admin)
	return nil
}
