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

package crowdfunding_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/campaign"
	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/jgualp/eleccions-a-delegat/contract/contracttest"
	"github.com/jgualp/eleccions-a-delegat/crowdfunding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// newCampaign deploys target=1000 min_fund=10 max_deposit_per_donor=500
// max_target=2000 with the deadline at 2000
func newCampaign(
	t *testing.T,
) (*crowdfunding.Crowdfunding, *contracttest.Host) {
	t.Helper()
	c := crowdfunding.New()
	h := contracttest.NewHost(owner, startTime)
	require.NoError(t, h.Deploy(c, "1000", "2000", "10", "500", "2000"))
	return c, h
}

func status(
	t *testing.T,
	c *crowdfunding.Crowdfunding,
	h *contracttest.Host,
) crowdfunding.Status {
	t.Helper()
	ret, err := h.Call(c, donorB, 0, "status")
	require.NoError(t, err)
	return ret.(crowdfunding.Status)
}

func deposit(
	t *testing.T,
	c *crowdfunding.Crowdfunding,
	h *contracttest.Host,
	donor common.Address,
) string {
	t.Helper()
	ret, err := h.Call(c, donorB, 0, "getDeposit", donor.Hex())
	require.NoError(t, err)
	return ret.(string)
}

func TestInitValidation(t *testing.T) {
	testDefs := []struct {
		name  string
		args  []string
		field string
	}{
		{"zero target", []string{"0", "2000", "10", "500", "2000"}, "target"},
		{"max target below target", []string{"1000", "2000", "10", "500", "999"}, "max_target"},
		{"zero min fund", []string{"1000", "2000", "0", "500", "2000"}, "min_fund"},
		{"cap below min fund", []string{"1000", "2000", "10", "9", "2000"}, "max_deposit_per_donor"},
		{"deadline now", []string{"1000", "1000", "10", "500", "2000"}, "deadline"},
		{"deadline past", []string{"1000", "10", "10", "500", "2000"}, "deadline"},
		{"target reported first", []string{"0", "10", "0", "0", "0"}, "target"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			h := contracttest.NewHost(owner, startTime)
			err := h.Deploy(crowdfunding.New(), testDef.args...)
			require.ErrorIs(t, err, contract.ErrConfiguration)
			var cfgErr contract.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, testDef.field, cfgErr.Field)
			assert.Empty(t, h.Store.Keys())
		})
	}
}

func TestInitBadArguments(t *testing.T) {
	h := contracttest.NewHost(owner, startTime)
	err := h.Deploy(crowdfunding.New(), "1000", "2000")
	require.ErrorIs(t, err, contract.ErrInvalidArgument)
	err = h.Deploy(crowdfunding.New(), "lots", "2000", "10", "500", "2000")
	require.ErrorIs(t, err, contract.ErrInvalidArgument)
}

func TestInitStoresConfig(t *testing.T) {
	c, h := newCampaign(t)
	assert.Equal(
		t,
		[]string{
			"deadline",
			"initialized",
			"max_deposit_per_donor",
			"max_target",
			"min_fund",
			"target",
		},
		h.Store.Keys(),
	)
	for fn, expected := range map[string]any{
		"getTarget":             "1000",
		"getDeadline":           uint64(deadline),
		"getMinFund":            "10",
		"getMaxDepositPerDonor": "500",
		"getMaxTarget":          "2000",
		"getCurrentFunds":       "0",
		"get_current_funds":     "0",
	} {
		ret, err := h.Call(c, donorB, 0, fn)
		require.NoError(t, err, fn)
		assert.Equal(t, expected, ret, fn)
	}
	assert.Equal(t, crowdfunding.FundingPeriod, status(t, c, h))

	err := h.Deploy(c, "1000", "3000", "10", "500", "2000")
	require.ErrorIs(t, err, contract.ErrAlreadyInit)
	ret, err := h.Call(c, donorB, 0, "getDeadline")
	require.NoError(t, err)
	assert.Equal(t, uint64(deadline), ret)
}

func TestCallBeforeInit(t *testing.T) {
	c := crowdfunding.New()
	h := contracttest.NewHost(owner, startTime)
	_, err := h.Call(c, donorA, 10, "fund")
	require.ErrorIs(t, err, contract.ErrNotInitialized)
}

func TestFundGuards(t *testing.T) {
	c, h := newCampaign(t)

	_, err := h.Call(c, donorA, 9, "fund")
	require.ErrorIs(t, err, crowdfunding.ErrFundBelowMinimum)
	assert.ErrorIs(t, err, contract.ErrGuardViolation)

	_, err = h.Call(c, donorA, 500, "fund")
	require.NoError(t, err)
	_, err = h.Call(c, donorA, 10, "fund")
	require.ErrorIs(t, err, crowdfunding.ErrDepositExceedsMax)
	assert.Equal(t, "500", deposit(t, c, h, donorA))

	// Funds held by the campaign count towards the maximum target
	h.Funds = uint256.NewInt(1995)
	_, err = h.Call(c, donorB, 10, "fund")
	require.ErrorIs(t, err, crowdfunding.ErrFundExceedsMaxTarget)
	_, err = h.Call(c, donorB, 5, "fund")
	require.ErrorIs(t, err, crowdfunding.ErrFundBelowMinimum)
	h.Funds = uint256.NewInt(500)

	// The deadline instant no longer accepts funds
	h.Now = deadline - 1
	_, err = h.Call(c, donorB, 10, "fund")
	require.NoError(t, err)
	h.Now = deadline
	_, err = h.Call(c, donorB, 10, "fund")
	require.ErrorIs(t, err, crowdfunding.ErrFundAfterDeadline)
	assert.Equal(t, "10", deposit(t, c, h, donorB))
	assert.Equal(t, "510", h.Funds.Dec())
}

func TestClaimIsNotPayable(t *testing.T) {
	c, h := newCampaign(t)
	_, err := h.Call(c, donorA, 10, "claim")
	require.ErrorIs(t, err, contract.ErrNotPayable)
}

func TestFailedCampaignRefund(t *testing.T) {
	c, h := newCampaign(t)

	h.Now = deadline - 1
	_, err := h.Call(c, donorA, 500, "fund")
	require.NoError(t, err)
	assert.Equal(t, "500", deposit(t, c, h, donorA))
	assert.Equal(t, "500", h.Funds.Dec())
	assert.Equal(t, crowdfunding.FundingPeriod, status(t, c, h))

	_, err = h.Call(c, donorA, 600, "fund")
	require.ErrorIs(t, err, crowdfunding.ErrDepositExceedsMax)

	_, err = h.Call(c, donorA, 0, "claim")
	require.ErrorIs(t, err, crowdfunding.ErrClaimBeforeDeadline)

	h.Now = deadline + 1
	assert.Equal(t, crowdfunding.Failed, status(t, c, h))

	_, err = h.Call(c, donorA, 0, "claim")
	require.NoError(t, err)
	require.Len(t, h.Transfers, 1)
	assert.Equal(t, donorA, h.Transfers[0].To)
	assert.Equal(t, "500", h.Transfers[0].Amount.Dec())
	assert.Equal(t, "0", deposit(t, c, h, donorA))
	assert.True(t, h.Funds.IsZero())

	// Repeat claims and donors without a deposit are no-ops
	_, err = h.Call(c, donorA, 0, "claim")
	require.NoError(t, err)
	_, err = h.Call(c, donorB, 0, "claim")
	require.NoError(t, err)
	assert.Len(t, h.Transfers, 1)
	assert.Equal(t, crowdfunding.EventRefunded, h.Events[len(h.Events)-1].Name)
}

func TestSuccessfulCampaignClaim(t *testing.T) {
	c, h := newCampaign(t)
	_, err := h.Call(c, donorA, 500, "fund")
	require.NoError(t, err)
	_, err = h.Call(c, donorB, 500, "fund")
	require.NoError(t, err)

	h.Now = deadline
	assert.Equal(t, crowdfunding.Successful, status(t, c, h))

	_, err = h.Call(c, donorA, 0, "claim")
	require.ErrorIs(t, err, crowdfunding.ErrOnlyOwnerCanClaim)

	_, err = h.Call(c, owner, 0, "claim")
	require.NoError(t, err)
	require.Len(t, h.Transfers, 1)
	assert.Equal(t, owner, h.Transfers[0].To)
	assert.Equal(t, "1000", h.Transfers[0].Amount.Dec())
	assert.True(t, h.Funds.IsZero())

	// Paid out campaigns stay successful and never pay twice
	assert.Equal(t, crowdfunding.Successful, status(t, c, h))
	h.Funds = uint256.NewInt(1)
	_, err = h.Call(c, owner, 0, "claim")
	require.NoError(t, err)
	assert.Len(t, h.Transfers, 1)
	_, err = h.Call(c, donorA, 0, "claim")
	require.ErrorIs(t, err, crowdfunding.ErrOnlyOwnerCanClaim)
}

func TestSetMaxDepositPerDonor(t *testing.T) {
	c, h := newCampaign(t)

	_, err := h.Call(c, donorA, 0, "setMaxDepositPerDonor", "600")
	require.ErrorIs(t, err, campaign.ErrNotOwner)

	_, err = h.Call(c, owner, 0, "setMaxDepositPerDonor", "5")
	require.ErrorIs(t, err, crowdfunding.ErrMaxDepositBelowMinFund)

	// An empty amount does not remove the cap
	_, err = h.Call(c, owner, 0, "setMaxDepositPerDonor", "")
	require.ErrorIs(t, err, contract.ErrInvalidArgument)

	// Zero removes the cap
	_, err = h.Call(c, owner, 0, "set_max_deposit_per_donor", "0")
	require.NoError(t, err)
	_, err = h.Call(c, donorA, 1500, "fund")
	require.NoError(t, err)

	_, err = h.Call(c, owner, 0, "setMaxDepositPerWallet", "600")
	require.NoError(t, err)
	ret, err := h.Call(c, donorA, 0, "getMaxDepositPerDonor")
	require.NoError(t, err)
	assert.Equal(t, "600", ret)
	_, err = h.Call(c, donorA, 10, "fund")
	require.ErrorIs(t, err, crowdfunding.ErrDepositExceedsMax)

	h.Now = deadline
	_, err = h.Call(c, owner, 0, "setMaxDepositPerDonor", "700")
	require.ErrorIs(t, err, crowdfunding.ErrMaxDepositAfterDeadline)
}

func TestDepositsMatchBalance(t *testing.T) {
	c, h := newCampaign(t)
	donors := []common.Address{donorA, donorB, owner}
	amounts := []uint64{10, 250, 9, 120, 499, 40, 75, 310, 5, 200}
	for i, amount := range amounts {
		donor := donors[i%len(donors)]
		_, _ = h.Call(c, donor, amount, "fund")

		ret, err := h.Call(c, donorA, 0, "getDeposits")
		require.NoError(t, err)
		sum := new(uint256.Int)
		for _, d := range ret.([]crowdfunding.Deposit) {
			amt, err := contract.ParseAmount(d.Amount)
			require.NoError(t, err)
			assert.False(t, amt.IsZero())
			assert.LessOrEqual(t, amt.Uint64(), uint64(500))
			sum.Add(sum, amt)
		}
		assert.Equal(t, h.Funds.Dec(), sum.Dec(), "after fund %d", i)
	}
}

func TestFundEmitsEvent(t *testing.T) {
	c, h := newCampaign(t)
	_, err := h.Call(c, donorA, 100, "fund")
	require.NoError(t, err)
	_, err = h.Call(c, donorA, 50, "fund")
	require.NoError(t, err)
	require.Len(t, h.Events, 2)
	assert.Equal(t, crowdfunding.EventFunded, h.Events[1].Name)
	assert.Equal(
		t,
		crowdfunding.FundedEvent{Donor: donorA, Amount: "50", Deposit: "150"},
		h.Events[1].Data,
	)
}

func TestStatusText(t *testing.T) {
	text, err := crowdfunding.Failed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Failed", string(text))
	assert.Equal(t, "FundingPeriod", crowdfunding.FundingPeriod.String())
}
