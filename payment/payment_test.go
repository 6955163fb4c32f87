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

package payment_test

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"github.com/ticket721/t721controller/currency"
	"github.com/ticket721/t721controller/eip712"
	"github.com/ticket721/t721controller/ident"
	"github.com/ticket721/t721controller/payment"
	"github.com/ticket721/t721controller/token"
	"github.com/ticket721/t721controller/token/tokentest"
)

func addr(last byte) ident.Address {
	var a ident.Address
	a[19] = last
	return a
}

var (
	controllerAddr = addr(0xc0)
	collectorAddr  = addr(0xfe)
	payerAddr      = addr(0x01)
	daiAddr        = addr(0xd1)
	relayTokenAddr = addr(0xd2)
)

type fixture struct {
	whitelist *currency.Whitelist
	directory *tokentest.Directory
	balances  *payment.Balances
	processor *payment.Processor
	dai       *tokentest.Fungible
	relayed   *tokentest.Relayed
	group     ident.Hash
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		whitelist: currency.NewWhitelist(),
		directory: tokentest.NewDirectory(),
		balances:  payment.NewBalances(),
		dai:       tokentest.NewFungible(),
		relayed:   tokentest.NewRelayed(relayTokenAddr),
		group:     eip712.Keccak256([]byte("group")),
	}
	f.directory.RegisterFungible(daiAddr, f.dai)
	f.directory.RegisterRelayed(relayTokenAddr, f.relayed)
	f.processor = payment.NewProcessor(controllerAddr, f.whitelist, f.directory, f.balances)

	require.NoError(t, f.whitelist.Add(daiAddr, currency.Entry{Kind: currency.KindDirect, PercentFee: 10}))
	require.NoError(t, f.whitelist.Add(relayTokenAddr, currency.Entry{Kind: currency.KindRelayed, PercentFee: 10}))
	return f
}

func TestExecuteDirect(t *testing.T) {
	f := setup(t)

	f.dai.Mint(payerAddr, 500)
	f.dai.Approve(payerAddr, controllerAddr, 500)

	items := []payment.Item{{Currency: daiAddr, Amount: 500, Fee: 50}}
	require.NoError(t, f.processor.Check(t.Context(), payerAddr, items))
	require.NoError(t, f.processor.Execute(t.Context(), payerAddr, f.group, items))

	payerBal, err := f.dai.BalanceOf(t.Context(), payerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), payerBal)

	// The whole gross sits at the controller until the fees are forwarded.
	controllerBal, err := f.dai.BalanceOf(t.Context(), controllerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(500), controllerBal)
	require.Equal(t, uint64(450), f.balances.Balance(f.group, daiAddr))

	require.NoError(t, f.processor.ForwardFees(t.Context(), collectorAddr, items))

	collectorBal, err := f.dai.BalanceOf(t.Context(), collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(50), collectorBal)
	controllerBal, err = f.dai.BalanceOf(t.Context(), controllerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(450), controllerBal)
}

func TestExecuteEmptyList(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.processor.Execute(t.Context(), payerAddr, f.group, nil))
	require.Equal(t, uint64(0), f.balances.Balance(f.group, daiAddr))
}

func TestExecutePartialFailureRefunds(t *testing.T) {
	f := setup(t)

	// Enough allowance for both items but only enough funds for one, so
	// the second item fails at transfer time.
	f.dai.Mint(payerAddr, 600)
	f.dai.Approve(payerAddr, controllerAddr, 1000)

	items := []payment.Item{
		{Currency: daiAddr, Amount: 500, Fee: 50},
		{Currency: daiAddr, Amount: 500, Fee: 50},
	}
	err := f.processor.Execute(t.Context(), payerAddr, f.group, items)
	require.ErrorIs(t, err, payment.ErrTransferFailed)

	payerBal, err := f.dai.BalanceOf(t.Context(), payerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(600), payerBal, "the settled first item is refunded")
	require.Equal(t, uint64(0), f.balances.Balance(f.group, daiAddr))
}

func TestRefundRestoresPayer(t *testing.T) {
	f := setup(t)

	f.dai.Mint(payerAddr, 500)
	f.dai.Approve(payerAddr, controllerAddr, 500)

	items := []payment.Item{{Currency: daiAddr, Amount: 500, Fee: 50}}
	require.NoError(t, f.processor.Execute(t.Context(), payerAddr, f.group, items))
	require.NoError(t, f.processor.Refund(t.Context(), payerAddr, f.group, items))

	payerBal, err := f.dai.BalanceOf(t.Context(), payerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(500), payerBal)
	require.Equal(t, uint64(0), f.balances.Balance(f.group, daiAddr))
}

func TestCheckFeeMismatch(t *testing.T) {
	f := setup(t)
	f.dai.Mint(payerAddr, 500)
	f.dai.Approve(payerAddr, controllerAddr, 500)

	err := f.processor.Check(t.Context(), payerAddr, []payment.Item{{Currency: daiAddr, Amount: 500, Fee: 49}})
	require.ErrorIs(t, err, payment.ErrFeeMismatch)
}

func TestCheckUnwhitelisted(t *testing.T) {
	f := setup(t)
	err := f.processor.Check(t.Context(), payerAddr, []payment.Item{{Currency: addr(0x99), Amount: 100, Fee: 10}})
	require.ErrorIs(t, err, currency.ErrUnwhitelisted)
}

func TestCheckAllowanceTooLow(t *testing.T) {
	f := setup(t)
	f.dai.Mint(payerAddr, 500)
	f.dai.Approve(payerAddr, controllerAddr, 499)

	err := f.processor.Check(t.Context(), payerAddr, []payment.Item{{Currency: daiAddr, Amount: 500, Fee: 50}})
	require.ErrorIs(t, err, payment.ErrAllowanceTooLow)
}

func relayItem(t *testing.T, key *secp256k1.PrivateKey, amount, fee uint64) payment.Item {
	t.Helper()

	relay := &token.RelayedTransfer{
		Signer:   eip712.SignerAddress(key),
		Relayer:  payerAddr,
		To:       controllerAddr,
		Amount:   amount,
		Nonce:    1,
		GasLimit: 100_000,
		GasPrice: 1,
	}
	relay.Signature = eip712.Sign(key, relay.Digest(relayTokenAddr))
	return payment.Item{Currency: relayTokenAddr, Amount: amount, Fee: fee, Relay: relay}
}

func TestExecuteRelayed(t *testing.T) {
	f := setup(t)

	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	signer := eip712.SignerAddress(key)

	f.relayed.Mint(signer, 500)

	item := relayItem(t, key, 500, 50)
	require.NoError(t, f.processor.Check(t.Context(), signer, []payment.Item{item}))
	require.NoError(t, f.processor.Execute(t.Context(), signer, f.group, []payment.Item{item}))
	require.Equal(t, uint64(450), f.balances.Balance(f.group, relayTokenAddr))

	require.NoError(t, f.processor.ForwardFees(t.Context(), collectorAddr, []payment.Item{item}))
	collectorBal, err := f.relayed.BalanceOf(t.Context(), collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(50), collectorBal)
}

func TestCheckRelayMissing(t *testing.T) {
	f := setup(t)
	err := f.processor.Check(t.Context(), payerAddr, []payment.Item{{Currency: relayTokenAddr, Amount: 500, Fee: 50}})
	require.ErrorIs(t, err, payment.ErrInvalidRelay)
}

func TestCheckRelayWrongSigner(t *testing.T) {
	f := setup(t)

	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	item := relayItem(t, key, 500, 50)
	// The payer is not the relay signer.
	err = f.processor.Check(t.Context(), payerAddr, []payment.Item{item})
	require.ErrorIs(t, err, payment.ErrInvalidRelay)
}

func TestCheckRelayTamperedAmount(t *testing.T) {
	f := setup(t)

	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	signer := eip712.SignerAddress(key)

	item := relayItem(t, key, 500, 50)
	item.Relay.Amount = 400
	item.Amount = 400
	item.Fee = 40
	err = f.processor.Check(t.Context(), signer, []payment.Item{item})
	require.ErrorIs(t, err, payment.ErrInvalidRelay)
}

func TestBalancesDebit(t *testing.T) {
	b := payment.NewBalances()
	group := eip712.Keccak256([]byte("g"))

	b.Credit(group, daiAddr, 100)
	require.ErrorIs(t, b.Debit(group, daiAddr, 101), payment.ErrBalanceTooLow)
	require.NoError(t, b.Debit(group, daiAddr, 100))
	require.Equal(t, uint64(0), b.Balance(group, daiAddr))
	require.ErrorIs(t, b.Debit(group, daiAddr, 1), payment.ErrBalanceTooLow)
}
