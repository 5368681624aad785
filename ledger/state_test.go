// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/jgualp/eleccions-a-delegat/crowdfunding"
	"github.com/jgualp/eleccions-a-delegat/database"
	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/election"
	"github.com/jgualp/eleccions-a-delegat/event"
	"github.com/jgualp/eleccions-a-delegat/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	startTime = 1_000
	deadline  = 2_000
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	donorA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	donorB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newTestLedger(t *testing.T, cfg ledger.LedgerStateConfig) *ledger.LedgerState {
	t.Helper()
	ls, err := ledger.NewLedgerState(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, ls.Close())
	})
	ls.SetTime(startTime)
	return ls
}

func amount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// deployCrowdfunding deploys target=1000 deadline=2000 min_fund=10
// max_deposit_per_donor=500 max_target=2000 and funds both donors
func deployCrowdfunding(t *testing.T, ls *ledger.LedgerState) common.Address {
	t.Helper()
	ctx := context.Background()
	addr, err := ls.Deploy(ctx, ledger.DeployRequest{
		Kind:  crowdfunding.Kind,
		Owner: owner,
		Args:  []string{"1000", "2000", "10", "500", "2000"},
	})
	require.NoError(t, err)
	for _, donor := range []common.Address{donorA, donorB} {
		_, err := ls.Credit(ctx, donor, amount(1_000))
		require.NoError(t, err)
	}
	return addr
}

func call(
	t *testing.T,
	ls *ledger.LedgerState,
	addr common.Address,
	caller common.Address,
	value uint64,
	function string,
	args ...string,
) (*ledger.Receipt, error) {
	t.Helper()
	return ls.Execute(context.Background(), ledger.CallRequest{
		Contract: addr,
		Caller:   caller,
		Function: function,
		Args:     args,
		Value:    amount(value),
	})
}

func balance(t *testing.T, ls *ledger.LedgerState, addr common.Address) uint64 {
	t.Helper()
	bal, err := ls.Balance(context.Background(), addr)
	require.NoError(t, err)
	return bal.Uint64()
}

func TestDeployAddressesFollowOwnerNonce(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	ctx := context.Background()
	first := deployCrowdfunding(t, ls)
	assert.Equal(t, crypto.CreateAddress(owner, 0), first)
	second, err := ls.Deploy(ctx, ledger.DeployRequest{
		Kind:  election.Kind,
		Owner: owner,
		Args:  []string{"1500", "1800"},
	})
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(owner, 1), second)

	acct, err := ls.Account(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), acct.Nonce)

	contracts, err := ls.Contracts(ctx, "")
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, first.Hex(), contracts[0].Address)
	assert.Equal(t, crowdfunding.Kind, contracts[0].Kind)
	assert.Equal(t, []string{"1000", "2000", "10", "500", "2000"}, contracts[0].Args)
	assert.Equal(t, uint64(startTime), contracts[0].DeployedAt)
	assert.Equal(t, owner.Hex(), contracts[1].Owner)

	elections, err := ls.Contracts(ctx, election.Kind)
	require.NoError(t, err)
	assert.Len(t, elections, 1)

	info, err := ls.Contract(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, election.Kind, info.Kind)
	assert.Equal(t, "0", info.Balance)
}

func TestDeployFailureStoresNothing(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	ctx := context.Background()
	// deadline in the past
	_, err := ls.Deploy(ctx, ledger.DeployRequest{
		Kind:  crowdfunding.Kind,
		Owner: owner,
		Args:  []string{"1000", "500", "10", "500", "2000"},
	})
	require.ErrorIs(t, err, contract.ErrConfiguration)

	_, err = ls.Deploy(ctx, ledger.DeployRequest{Kind: "lottery", Owner: owner})
	require.ErrorIs(t, err, contract.ErrUnknownKind)

	acct, err := ls.Account(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, acct.Nonce)
	contracts, err := ls.Contracts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, contracts)
	_, err = ls.Contract(ctx, crypto.CreateAddress(owner, 0))
	require.ErrorIs(t, err, ledger.ErrUnknownContract)
}

func TestSuccessfulCampaign(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	ctx := context.Background()
	addr := deployCrowdfunding(t, ls)

	rcpt, err := call(t, ls, addr, donorA, 500, "fund")
	require.NoError(t, err)
	assert.True(t, rcpt.Success)
	assert.Equal(t, "500", rcpt.Value)
	_, err = call(t, ls, addr, donorB, 500, "fund")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), balance(t, ls, addr))
	assert.Equal(t, uint64(500), balance(t, ls, donorA))

	funds, err := ls.Query(ctx, ledger.QueryRequest{Contract: addr, Function: "get_current_funds"})
	require.NoError(t, err)
	assert.Equal(t, "1000", funds)

	_, err = call(t, ls, addr, owner, 0, "claim")
	require.ErrorIs(t, err, crowdfunding.ErrClaimBeforeDeadline)

	ls.SetTime(deadline)
	status, err := ls.Query(ctx, ledger.QueryRequest{Contract: addr, Function: "status"})
	require.NoError(t, err)
	assert.Equal(t, crowdfunding.Successful, status)

	_, err = call(t, ls, addr, donorA, 0, "claim")
	require.ErrorIs(t, err, crowdfunding.ErrOnlyOwnerCanClaim)

	_, err = call(t, ls, addr, owner, 0, "claim")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), balance(t, ls, owner))
	assert.Zero(t, balance(t, ls, addr))

	// a second claim pays nothing and the campaign stays successful
	_, err = call(t, ls, addr, owner, 0, "claim")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), balance(t, ls, owner))
	status, err = ls.Query(ctx, ledger.QueryRequest{Contract: addr, Function: "status"})
	require.NoError(t, err)
	assert.Equal(t, crowdfunding.Successful, status)
}

func TestFailedCampaignRefunds(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	addr := deployCrowdfunding(t, ls)
	_, err := call(t, ls, addr, donorA, 300, "fund")
	require.NoError(t, err)
	_, err = call(t, ls, addr, donorB, 200, "fund")
	require.NoError(t, err)

	ls.SetTime(deadline + 1)
	_, err = call(t, ls, addr, donorA, 0, "claim")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), balance(t, ls, donorA))
	assert.Equal(t, uint64(200), balance(t, ls, addr))

	// nothing left to refund
	_, err = call(t, ls, addr, donorA, 0, "claim")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), balance(t, ls, donorA))
}

// depositSum adds up getDeposits for a crowdfunding contract
func depositSum(t *testing.T, ls *ledger.LedgerState, addr common.Address) uint64 {
	t.Helper()
	ret, err := ls.Query(context.Background(), ledger.QueryRequest{
		Contract: addr,
		Function: "getDeposits",
	})
	require.NoError(t, err)
	var sum uint64
	for _, d := range ret.([]crowdfunding.Deposit) {
		v, err := contract.ParseAmount(d.Amount)
		require.NoError(t, err)
		sum += v.Uint64()
	}
	return sum
}

func TestDepositsMatchCustodiedBalance(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	ctx := context.Background()
	addr := deployCrowdfunding(t, ls)
	checkCustody := func(expected uint64) {
		t.Helper()
		assert.Equal(t, expected, balance(t, ls, addr))
		assert.Equal(t, expected, depositSum(t, ls, addr))
	}

	_, err := call(t, ls, addr, donorA, 300, "fund")
	require.NoError(t, err)
	checkCustody(300)
	_, err = call(t, ls, addr, donorB, 150, "fund")
	require.NoError(t, err)
	checkCustody(450)
	_, err = call(t, ls, addr, donorA, 50, "fund")
	require.NoError(t, err)
	checkCustody(500)

	// The contract cannot fund itself out of its own balance
	rcpt, err := call(t, ls, addr, addr, 100, "fund")
	require.ErrorIs(t, err, ledger.ErrSelfCall)
	require.NotNil(t, rcpt)
	assert.False(t, rcpt.Success)
	checkCustody(500)

	// Nor can the faucet mint into it
	_, err = ls.Credit(ctx, addr, amount(1_000))
	require.ErrorIs(t, err, ledger.ErrCreditContract)
	checkCustody(500)

	_, err = call(t, ls, addr, donorB, 100, "fund")
	require.NoError(t, err)
	checkCustody(600)

	// 600 of 1000 raised, so the campaign fails and donors are refunded
	ls.SetTime(deadline + 1)
	status, err := ls.Query(ctx, ledger.QueryRequest{Contract: addr, Function: "status"})
	require.NoError(t, err)
	assert.Equal(t, crowdfunding.Failed, status)
	_, err = call(t, ls, addr, owner, 0, "claim")
	require.NoError(t, err)
	checkCustody(600)
	_, err = call(t, ls, addr, donorA, 0, "claim")
	require.NoError(t, err)
	checkCustody(250)
	_, err = call(t, ls, addr, donorB, 0, "claim")
	require.NoError(t, err)
	checkCustody(0)
}

func TestRejectedCallLeavesStateUntouched(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	ctx := context.Background()
	addr := deployCrowdfunding(t, ls)
	before, err := ls.Account(ctx, donorA)
	require.NoError(t, err)

	testDefs := []struct {
		name     string
		value    uint64
		function string
		expected error
	}{
		{"over max deposit", 600, "fund", crowdfunding.ErrDepositExceedsMax},
		{"below minimum", 5, "fund", crowdfunding.ErrFundBelowMinimum},
		{"more than the caller holds", 1_500, "fund", ledger.ErrInsufficientFunds},
		{"payment to non-payable function", 10, "claim", contract.ErrNotPayable},
		{"unknown function", 0, "withdraw", contract.ErrUnknownFunction},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			rcpt, err := call(t, ls, addr, donorA, testDef.value, testDef.function)
			require.ErrorIs(t, err, testDef.expected)
			assert.True(t, ledger.IsRejection(err))
			require.NotNil(t, rcpt)
			assert.False(t, rcpt.Success)
			assert.Equal(t, err.Error(), rcpt.Error)

			stored, err := ls.Receipt(ctx, rcpt.ID)
			require.NoError(t, err)
			assert.False(t, stored.Success)
			assert.Equal(t, crowdfunding.Kind, stored.Kind)

			after, err := ls.Account(ctx, donorA)
			require.NoError(t, err)
			assert.Equal(t, before.Balance.Uint64(), after.Balance.Uint64())
			assert.Equal(t, before.Nonce, after.Nonce)
			assert.Zero(t, balance(t, ls, addr))
		})
	}

	failed, err := ls.Receipts(ctx, models.ReceiptFilter{Contract: addr.Hex(), OnlyFailed: true})
	require.NoError(t, err)
	assert.Len(t, failed, len(testDefs))

	rcpt, err := call(t, ls, common.HexToAddress("0x00000000000000000000000000000000000000ee"), donorA, 0, "fund")
	require.ErrorIs(t, err, ledger.ErrUnknownContract)
	require.NotNil(t, rcpt)
	assert.Empty(t, rcpt.Kind)
}

func TestQueryRejectsStateChanges(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	ctx := context.Background()
	addr := deployCrowdfunding(t, ls)
	_, err := ls.Query(ctx, ledger.QueryRequest{Contract: addr, Function: "fund"})
	require.ErrorIs(t, err, ledger.ErrNotReadOnly)
	_, err = ls.Query(ctx, ledger.QueryRequest{Contract: addr, Function: "getDeposit", Args: []string{donorA.Hex()}})
	require.NoError(t, err)

	// read-only functions can also be called, which records a receipt
	rcpt, err := call(t, ls, addr, donorA, 0, "status")
	require.NoError(t, err)
	assert.JSONEq(t, `"FundingPeriod"`, string(rcpt.Result))
}

func TestElection(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	ctx := context.Background()
	addr, err := ls.Deploy(ctx, ledger.DeployRequest{
		Kind:  election.Kind,
		Owner: owner,
		Args:  []string{"1500", "1800"},
	})
	require.NoError(t, err)
	_, err = call(t, ls, addr, owner, 0, "addElector", donorA.Hex())
	require.NoError(t, err)
	_, err = call(t, ls, addr, donorA, 0, "addElector", donorB.Hex())
	require.ErrorIs(t, err, contract.ErrGuardViolation)
	_, err = call(t, ls, addr, owner, 0, "addCandidatura", "Alt")
	require.NoError(t, err)
	_, err = call(t, ls, addr, owner, 0, "add_candidacy", "Baix")
	require.NoError(t, err)

	_, err = call(t, ls, addr, donorA, 0, "vote", "0")
	require.ErrorIs(t, err, contract.ErrGuardViolation)

	ls.SetTime(1500)
	_, err = call(t, ls, addr, donorA, 0, "vote", "5")
	require.ErrorIs(t, err, contract.ErrOutOfRange)
	_, err = call(t, ls, addr, donorB, 0, "vote", "0")
	require.ErrorIs(t, err, contract.ErrGuardViolation)
	_, err = call(t, ls, addr, donorA, 0, "votar", "1")
	require.NoError(t, err)
	_, err = call(t, ls, addr, donorA, 0, "vote", "0")
	require.ErrorIs(t, err, contract.ErrGuardViolation)

	voted, err := ls.Query(ctx, ledger.QueryRequest{Contract: addr, Function: "hasVoted", Args: []string{donorA.Hex()}})
	require.NoError(t, err)
	assert.Equal(t, true, voted)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	_, contractEvents := bus.Subscribe(ledger.ContractEventType)
	_, calls := bus.Subscribe(ledger.CampaignCalledEventType)
	_, deploys := bus.Subscribe(ledger.CampaignDeployedEventType)
	ls := newTestLedger(t, ledger.LedgerStateConfig{EventBus: bus})
	addr := deployCrowdfunding(t, ls)

	select {
	case evt := <-deploys:
		data, ok := evt.Data.(ledger.CampaignDeployedEvent)
		require.True(t, ok)
		assert.Equal(t, addr.Hex(), data.Address)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for deploy event")
	}

	_, err := call(t, ls, addr, donorA, 600, "fund")
	require.Error(t, err)
	rcpt, err := call(t, ls, addr, donorA, 100, "fund")
	require.NoError(t, err)

	select {
	case evt := <-contractEvents:
		data, ok := evt.Data.(ledger.ContractEvent)
		require.True(t, ok)
		assert.Equal(t, crowdfunding.EventFunded, data.Name)
		assert.Equal(t, rcpt.ID, data.ReceiptID)
		funded, ok := data.Data.(crowdfunding.FundedEvent)
		require.True(t, ok)
		assert.Equal(t, "100", funded.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for contract event")
	}
	select {
	case evt := <-calls:
		data, ok := evt.Data.(ledger.CampaignCalledEvent)
		require.True(t, ok)
		assert.Equal(t, rcpt.ID, data.ReceiptID)
		assert.Equal(t, "fund", data.Function)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for call event")
	}
	// the rejected call published nothing
	select {
	case evt := <-contractEvents:
		t.Fatalf("unexpected event: %v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCommitTimestampsStayEqual(t *testing.T) {
	ls := newTestLedger(t, ledger.LedgerStateConfig{})
	addr := deployCrowdfunding(t, ls)
	_, err := call(t, ls, addr, donorA, 100, "fund")
	require.NoError(t, err)
	_, err = call(t, ls, addr, donorA, 1, "fund")
	require.Error(t, err)
	db := ls.Database()
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.NotZero(t, blobTs)
	assert.Equal(t, blobTs, metadataTs)
}

func TestRecoverMissingCampaignIndex(t *testing.T) {
	dataDir := t.TempDir()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{DataDir: dataDir})
	require.NoError(t, err)
	ls.SetTime(startTime)
	addr := deployCrowdfunding(t, ls)
	require.NoError(t, ls.Close())

	// lose the metadata side of the last deploy
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Metadata().DB().Exec("DELETE FROM campaign").Error)
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(time.Now().UnixMilli()+1_000, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	ls = newTestLedger(t, ledger.LedgerStateConfig{DataDir: dataDir})
	contracts, err := ls.Contracts(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, addr.Hex(), contracts[0].Address)
	assert.Equal(t, []string{"1000", "2000", "10", "500", "2000"}, contracts[0].Args)
	db = ls.Database()
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, blobTs, metadataTs)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	ls := newTestLedger(t, ledger.LedgerStateConfig{PromRegistry: registry})
	addr := deployCrowdfunding(t, ls)
	_, err := call(t, ls, addr, donorA, 100, "fund")
	require.NoError(t, err)
	_, err = call(t, ls, addr, donorA, 1, "fund")
	require.Error(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			key := f.GetName()
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" {
					key += ":" + l.GetValue()
				}
			}
			switch {
			case m.GetCounter() != nil:
				values[key] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] += m.GetGauge().GetValue()
			}
		}
	}
	assert.InDelta(t, 1, values["delegat_ledger_calls_total:success"], 0)
	assert.InDelta(t, 1, values["delegat_ledger_calls_total:rejected"], 0)
	assert.InDelta(t, 1, values["delegat_ledger_deploys_total"], 0)
	assert.InDelta(t, 1, values["delegat_ledger_contracts"], 0)
}

func TestClock(t *testing.T) {
	fixed := time.Unix(5_000, 0)
	ls := newTestLedger(t, ledger.LedgerStateConfig{
		NowFunc: func() time.Time { return fixed },
	})
	assert.Equal(t, uint64(startTime), ls.Now())
	ls.SetTime(0)
	assert.Equal(t, uint64(5_000), ls.Now())
}

func TestCloseStopsGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	bus := event.NewEventBus(nil, nil)
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		DataDir:  t.TempDir(),
		EventBus: bus,
	})
	require.NoError(t, err)
	ls.SetTime(startTime)
	deployCrowdfunding(t, ls)
	require.NoError(t, ls.Close())
	bus.Stop()
}
