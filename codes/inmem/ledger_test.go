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

package inmem_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ticket721/t721controller/codes"
	"github.com/ticket721/t721controller/codes/inmem"
	"github.com/ticket721/t721controller/codes/testcontract"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
)

func TestContract(t *testing.T) {
	testcontract.TestLedgerContract(t, func(t *testing.T) (codes.Ledger, error) {
		return inmem.NewLedger(), nil
	})
}

func TestScope(t *testing.T) {
	var a, b ident.Address
	a[0], b[0] = 1, 2
	testcontract.TestScopeDerivation(t, eip712.Keccak256([]byte("group")), a, b)
}

func TestConcurrentConsume(t *testing.T) {
	ledger := inmem.NewLedger()
	scope := eip712.Keccak256([]byte("scope"))

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Consume(t.Context(), scope, 99); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	require.Equal(t, 1, count, "exactly one concurrent consume may win")
}
