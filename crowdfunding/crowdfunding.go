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

// Package crowdfunding implements a time-boxed fundraising campaign. Donors
// fund the campaign until the deadline; afterwards the owner collects the
// funds if the target was reached, or every donor can reclaim their deposit.
package crowdfunding

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/campaign"
	"github.com/jgualp/eleccions-a-delegat/contract"
)

const Kind = "crowdfunding"

// Event names
const (
	EventFunded   = "crowdfunding.funded"
	EventClaimed  = "crowdfunding.claimed"
	EventRefunded = "crowdfunding.refunded"
)

var (
	ErrFundBelowMinimum        = contract.NewGuardError("fund doesn't reach the minimum accepted")
	ErrFundExceedsMaxTarget    = contract.NewGuardError("fund would exceed the maximum amount")
	ErrFundAfterDeadline       = contract.NewGuardError("cannot fund after deadline")
	ErrDepositExceedsMax       = contract.NewGuardError("deposit exceeds maximum allowed")
	ErrClaimBeforeDeadline     = contract.NewGuardError("cannot claim before deadline")
	ErrOnlyOwnerCanClaim       = contract.NewGuardError("only owner can claim successful funding")
	ErrMaxDepositBelowMinFund  = contract.NewGuardError("max deposit per donor must be zero or at least min fund")
	ErrMaxDepositAfterDeadline = contract.NewGuardError("cannot change max deposit per donor after deadline")
)

// Status is the phase of a campaign, derived from the time and the funds held
type Status int

const (
	FundingPeriod Status = iota
	Successful
	Failed
)

func (s Status) String() string {
	switch s {
	case FundingPeriod:
		return "FundingPeriod"
	case Successful:
		return "Successful"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type FundedEvent struct {
	Donor   common.Address `json:"donor"`
	Amount  string         `json:"amount"`
	Deposit string         `json:"deposit"`
}

type ClaimedEvent struct {
	Owner  common.Address `json:"owner"`
	Amount string         `json:"amount"`
}

type RefundedEvent struct {
	Donor  common.Address `json:"donor"`
	Amount string         `json:"amount"`
}

// Deposit is a donor's cumulative contribution
type Deposit struct {
	Donor  common.Address `json:"donor"`
	Amount string         `json:"amount"`
}

type Crowdfunding struct{}

func New() *Crowdfunding {
	return &Crowdfunding{}
}

func init() {
	contract.Register(contract.Entry{
		Kind:        Kind,
		Description: "time-boxed fundraising campaign",
		InitArgs: []string{
			"target",
			"deadline",
			"min_fund",
			"max_deposit_per_donor",
			"max_target",
		},
		New: func() contract.Contract { return New() },
	})
}

func (c *Crowdfunding) Kind() string {
	return Kind
}

// Init validates and stores the campaign configuration
func (c *Crowdfunding) Init(h contract.Host, args contract.Args) error {
	cfg, err := ConfigFromArgs(args)
	if err != nil {
		return err
	}
	return c.Create(h, cfg)
}

// Create is Init with an already decoded configuration
func (c *Crowdfunding) Create(h contract.Host, cfg Config) error {
	if err := cfg.Validate(h.BlockTimestamp()); err != nil {
		return err
	}
	if err := campaign.MarkInitialized(h.Storage()); err != nil {
		return err
	}
	return newState(h.Storage()).store(cfg)
}

// Status is recomputed on every call. Once the owner has collected the funds
// the campaign stays Successful even though its balance is zero
func (c *Crowdfunding) Status(h contract.Host) (Status, error) {
	st := newState(h.Storage())
	deadline, err := st.deadline.Get()
	if err != nil {
		return FundingPeriod, err
	}
	if campaign.Deadline(deadline).Open(h.BlockTimestamp()) {
		return FundingPeriod, nil
	}
	claimed, err := st.claimed.Get()
	if err != nil {
		return FundingPeriod, err
	}
	if claimed {
		return Successful, nil
	}
	target, err := st.target.Get()
	if err != nil {
		return FundingPeriod, err
	}
	if h.Balance().Lt(target) {
		return Failed, nil
	}
	return Successful, nil
}

// CurrentFunds is the balance held by the campaign
func (c *Crowdfunding) CurrentFunds(h contract.Host) *uint256.Int {
	return h.Balance()
}

// Fund adds the call payment to the caller's deposit
func (c *Crowdfunding) Fund(h contract.Host) error {
	st := newState(h.Storage())
	cfg, err := st.config()
	if err != nil {
		return err
	}
	payment := h.CallValue()
	if payment.Lt(cfg.MinFund) {
		return ErrFundBelowMinimum
	}
	total, overflow := new(uint256.Int).AddOverflow(h.Balance(), payment)
	if overflow || total.Gt(cfg.MaxTarget) {
		return ErrFundExceedsMaxTarget
	}
	if !campaign.Deadline(cfg.Deadline).Open(h.BlockTimestamp()) {
		return ErrFundAfterDeadline
	}
	caller := h.Caller()
	deposit, err := st.deposits.Get(caller)
	if err != nil {
		return err
	}
	deposit.Add(deposit, payment)
	if !cfg.MaxDepositPerDonor.IsZero() && deposit.Gt(cfg.MaxDepositPerDonor) {
		return ErrDepositExceedsMax
	}
	if err := st.deposits.Set(caller, deposit); err != nil {
		return err
	}
	h.Emit(EventFunded, FundedEvent{
		Donor:   caller,
		Amount:  contract.Amount(payment),
		Deposit: contract.Amount(deposit),
	})
	return nil
}

// Claim pays out a resolved campaign: the whole balance to the owner if it
// succeeded, or the caller's own deposit if it failed
func (c *Crowdfunding) Claim(h contract.Host) error {
	status, err := c.Status(h)
	if err != nil {
		return err
	}
	st := newState(h.Storage())
	caller := h.Caller()
	switch status {
	case FundingPeriod:
		return ErrClaimBeforeDeadline
	case Successful:
		if caller != h.Owner() {
			return ErrOnlyOwnerCanClaim
		}
		claimed, err := st.claimed.Get()
		if err != nil {
			return err
		}
		if claimed {
			return nil
		}
		// The flag goes first so that no path can pay twice
		if err := st.claimed.Set(true); err != nil {
			return err
		}
		amount := h.Balance()
		if !amount.IsZero() {
			if err := h.Transfer(caller, amount); err != nil {
				return err
			}
		}
		h.Emit(EventClaimed, ClaimedEvent{
			Owner:  caller,
			Amount: contract.Amount(amount),
		})
	case Failed:
		deposit, err := st.deposits.Get(caller)
		if err != nil {
			return err
		}
		if deposit.IsZero() {
			return nil
		}
		if err := st.deposits.Clear(caller); err != nil {
			return err
		}
		if err := h.Transfer(caller, deposit); err != nil {
			return err
		}
		h.Emit(EventRefunded, RefundedEvent{
			Donor:  caller,
			Amount: contract.Amount(deposit),
		})
	}
	return nil
}

// SetMaxDepositPerDonor changes the per-donor cap. Zero removes the cap
func (c *Crowdfunding) SetMaxDepositPerDonor(
	h contract.Host,
	amount *uint256.Int,
) error {
	if err := campaign.RequireOwner(h); err != nil {
		return err
	}
	st := newState(h.Storage())
	cfg, err := st.config()
	if err != nil {
		return err
	}
	if !campaign.Deadline(cfg.Deadline).Open(h.BlockTimestamp()) {
		return ErrMaxDepositAfterDeadline
	}
	if !amount.IsZero() && amount.Lt(cfg.MinFund) {
		return ErrMaxDepositBelowMinFund
	}
	return st.maxDepositPerDonor.Set(amount)
}

// Config returns the stored campaign configuration
func (c *Crowdfunding) Config(h contract.Host) (Config, error) {
	return newState(h.Storage()).config()
}

func (c *Crowdfunding) Deposit(
	h contract.Host,
	donor common.Address,
) (*uint256.Int, error) {
	return newState(h.Storage()).deposits.Get(donor)
}

// Deposits lists every donor with a non-zero deposit
func (c *Crowdfunding) Deposits(h contract.Host) ([]Deposit, error) {
	ret := []Deposit{}
	err := newState(h.Storage()).deposits.Each(
		func(donor common.Address, amount *uint256.Int) error {
			ret = append(ret, Deposit{
				Donor:  donor,
				Amount: contract.Amount(amount),
			})
			return nil
		},
	)
	return ret, err
}
