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

package crowdfunding

import (
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/campaign"
	"github.com/jgualp/eleccions-a-delegat/contract"
)

// Storage keys
const (
	keyTarget             = "target"
	keyDeadline           = "deadline"
	keyMinFund            = "min_fund"
	keyMaxDepositPerDonor = "max_deposit_per_donor"
	keyMaxTarget          = "max_target"
	keyDepositPrefix      = "deposit"
	keyClaimed            = "claimed"
)

// Config holds the creation parameters of a campaign
type Config struct {
	Target             *uint256.Int
	MinFund            *uint256.Int
	MaxDepositPerDonor *uint256.Int
	MaxTarget          *uint256.Int
	Deadline           uint64
}

// ConfigFromArgs decodes Init arguments in the order
// target, deadline, min_fund, max_deposit_per_donor, max_target
func ConfigFromArgs(args contract.Args) (Config, error) {
	var cfg Config
	var err error
	if err = args.Expect(5); err != nil {
		return cfg, err
	}
	if cfg.Target, err = args.Amount(0); err != nil {
		return cfg, err
	}
	if cfg.Deadline, err = args.Uint64(1); err != nil {
		return cfg, err
	}
	if cfg.MinFund, err = args.Amount(2); err != nil {
		return cfg, err
	}
	if cfg.MaxDepositPerDonor, err = args.Amount(3); err != nil {
		return cfg, err
	}
	if cfg.MaxTarget, err = args.Amount(4); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the parameters against the creation time. The first
// failing rule is reported
func (c Config) Validate(now uint64) error {
	zero := new(uint256.Int)
	if c.Target == nil || !c.Target.Gt(zero) {
		return contract.ConfigurationError{
			Field:  keyTarget,
			Reason: "must be greater than zero",
		}
	}
	if c.MaxTarget == nil || c.MaxTarget.Lt(c.Target) {
		return contract.ConfigurationError{
			Field:  keyMaxTarget,
			Reason: "must be greater than or equal to target",
		}
	}
	if c.MinFund == nil || !c.MinFund.Gt(zero) {
		return contract.ConfigurationError{
			Field:  keyMinFund,
			Reason: "must be greater than zero",
		}
	}
	if c.MaxDepositPerDonor == nil || c.MaxDepositPerDonor.Lt(c.MinFund) {
		return contract.ConfigurationError{
			Field:  keyMaxDepositPerDonor,
			Reason: "must be greater than or equal to min_fund",
		}
	}
	return campaign.RequireFuture(keyDeadline, c.Deadline, now)
}

// state is the typed view of a campaign's storage
type state struct {
	target             contract.AmountValue
	minFund            contract.AmountValue
	maxDepositPerDonor contract.AmountValue
	maxTarget          contract.AmountValue
	deadline           contract.SingleValue[uint64]
	claimed            contract.SingleValue[bool]
	deposits           contract.AmountMap
}

func newState(s contract.Storage) state {
	return state{
		target:             contract.NewAmountValue(s, keyTarget),
		minFund:            contract.NewAmountValue(s, keyMinFund),
		maxDepositPerDonor: contract.NewAmountValue(s, keyMaxDepositPerDonor),
		maxTarget:          contract.NewAmountValue(s, keyMaxTarget),
		deadline:           contract.NewSingleValue[uint64](s, keyDeadline),
		claimed:            contract.NewSingleValue[bool](s, keyClaimed),
		deposits:           contract.NewAmountMap(s, keyDepositPrefix),
	}
}

func (s state) store(cfg Config) error {
	if err := s.target.Set(cfg.Target); err != nil {
		return err
	}
	if err := s.minFund.Set(cfg.MinFund); err != nil {
		return err
	}
	if err := s.maxDepositPerDonor.Set(cfg.MaxDepositPerDonor); err != nil {
		return err
	}
	if err := s.maxTarget.Set(cfg.MaxTarget); err != nil {
		return err
	}
	return s.deadline.Set(cfg.Deadline)
}

func (s state) config() (Config, error) {
	var cfg Config
	var err error
	if cfg.Target, err = s.target.Get(); err != nil {
		return cfg, err
	}
	if cfg.MinFund, err = s.minFund.Get(); err != nil {
		return cfg, err
	}
	if cfg.MaxDepositPerDonor, err = s.maxDepositPerDonor.Get(); err != nil {
		return cfg, err
	}
	if cfg.MaxTarget, err = s.maxTarget.Get(); err != nil {
		return cfg, err
	}
	if cfg.Deadline, err = s.deadline.Get(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
