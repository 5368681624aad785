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
	"github.com/jgualp/eleccions-a-delegat/campaign"
	"github.com/jgualp/eleccions-a-delegat/contract"
)

func (c *Crowdfunding) Endpoints() *contract.EndpointSet {
	return contract.NewEndpointSet(
		c.endpoint("fund", true, false, c.fundEndpoint),
		c.endpoint("claim", false, false, c.claimEndpoint),
		c.endpoint("setMaxDepositPerDonor", false, false, c.setMaxDepositEndpoint),
		c.endpoint("status", false, true, c.statusEndpoint),
		c.endpoint("getCurrentFunds", false, true, c.currentFundsEndpoint),
		c.endpoint("getTarget", false, true, c.configView(func(cfg Config) any {
			return contract.Amount(cfg.Target)
		})),
		c.endpoint("getDeadline", false, true, c.configView(func(cfg Config) any {
			return cfg.Deadline
		})),
		c.endpoint("getMinFund", false, true, c.configView(func(cfg Config) any {
			return contract.Amount(cfg.MinFund)
		})),
		c.endpoint("getMaxDepositPerDonor", false, true, c.configView(func(cfg Config) any {
			return contract.Amount(cfg.MaxDepositPerDonor)
		})),
		c.endpoint("getMaxTarget", false, true, c.configView(func(cfg Config) any {
			return contract.Amount(cfg.MaxTarget)
		})),
		c.endpoint("getDeposit", false, true, c.depositEndpoint),
		c.endpoint("getDeposits", false, true, c.depositsEndpoint),
	).
		Alias("setMaxDepositPerWallet", "setMaxDepositPerDonor").
		Alias("set_max_deposit_per_donor", "setMaxDepositPerDonor").
		Alias("get_current_funds", "getCurrentFunds")
}

func (c *Crowdfunding) endpoint(
	name string,
	payable bool,
	readOnly bool,
	fn contract.HandlerFunc,
) contract.Endpoint {
	return contract.Endpoint{
		Name:     name,
		Payable:  payable,
		ReadOnly: readOnly,
		Handler:  campaign.Initialized(fn),
	}
}

func (c *Crowdfunding) fundEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return nil, c.Fund(h)
}

func (c *Crowdfunding) claimEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return nil, c.Claim(h)
}

func (c *Crowdfunding) setMaxDepositEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	amount, err := args.Amount(0)
	if err != nil {
		return nil, err
	}
	return nil, c.SetMaxDepositPerDonor(h, amount)
}

func (c *Crowdfunding) statusEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return c.Status(h)
}

func (c *Crowdfunding) currentFundsEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return contract.Amount(c.CurrentFunds(h)), nil
}

func (c *Crowdfunding) configView(fn func(Config) any) contract.HandlerFunc {
	return func(h contract.Host, args contract.Args) (any, error) {
		if err := args.Expect(0); err != nil {
			return nil, err
		}
		cfg, err := c.Config(h)
		if err != nil {
			return nil, err
		}
		return fn(cfg), nil
	}
}

func (c *Crowdfunding) depositEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	donor, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	deposit, err := c.Deposit(h, donor)
	if err != nil {
		return nil, err
	}
	return contract.Amount(deposit), nil
}

func (c *Crowdfunding) depositsEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return c.Deposits(h)
}
