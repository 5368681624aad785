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
package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/ledger"
)

// Ledger is the part of *ledger.LedgerState served by the API
type Ledger interface {
	Deploy(context.Context, ledger.DeployRequest) (common.Address, error)
	Execute(context.Context, ledger.CallRequest) (*ledger.Receipt, error)
	Query(context.Context, ledger.QueryRequest) (any, error)
	Account(context.Context, common.Address) (*ledger.Account, error)
	Credit(context.Context, common.Address, *uint256.Int) (*ledger.Account, error)
	Contract(context.Context, common.Address) (*ledger.ContractInfo, error)
	Contracts(context.Context, string) ([]ledger.ContractInfo, error)
	Receipt(context.Context, string) (*ledger.Receipt, error)
	Receipts(context.Context, models.ReceiptFilter) ([]ledger.Receipt, error)
	Now() uint64
	SetTime(uint64)
}

var _ Ledger = (*ledger.LedgerState)(nil)
