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

package tokentest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/token"
)

// Relayed is an in-memory meta-transaction token: transfers can be
// authorized by a payer signature over the relayed-transfer digest instead
// of a prior approval.
type Relayed struct {
	*Fungible

	address ident.Address

	mu         sync.Mutex
	usedNonces map[nonceKey]struct{}
}

type nonceKey struct {
	signer ident.Address
	nonce  uint64
}

func NewRelayed(address ident.Address) *Relayed {
	return &Relayed{
		Fungible:   NewFungible(),
		address:    address,
		usedNonces: make(map[nonceKey]struct{}),
	}
}

func (r *Relayed) TransferWithAuthorization(ctx context.Context, transfer token.RelayedTransfer) error {
	signer, err := eip712.Recover(transfer.Digest(r.address), transfer.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrInvalidRelay, err)
	}
	if signer != transfer.Signer {
		return fmt.Errorf("%w: recovered %s, want %s", token.ErrInvalidRelay, signer, transfer.Signer)
	}

	r.mu.Lock()
	key := nonceKey{signer: transfer.Signer, nonce: transfer.Nonce}
	if _, ok := r.usedNonces[key]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: nonce %d already used", token.ErrInvalidRelay, transfer.Nonce)
	}
	r.usedNonces[key] = struct{}{}
	r.mu.Unlock()

	return r.Transfer(ctx, transfer.Signer, transfer.To, transfer.Amount)
}
