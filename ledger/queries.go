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
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/database"
	"github.com/jgualp/eleccions-a-delegat/database/models"
)

// Receipt is the record of a single Execute call
type Receipt struct {
	CreatedAt      time.Time       `json:"createdAt"`
	Result         json.RawMessage `json:"result,omitempty"`
	ID             string          `json:"id"`
	Contract       string          `json:"contract"`
	Kind           string          `json:"kind"`
	Caller         string          `json:"caller"`
	Function       string          `json:"function"`
	Value          string          `json:"value"`
	Error          string          `json:"error,omitempty"`
	Args           []string        `json:"args"`
	BlockTimestamp uint64          `json:"blockTimestamp"`
	Success        bool            `json:"success"`
}

func receiptFromModel(m *models.Receipt) Receipt {
	ret := Receipt{
		CreatedAt:      m.CreatedAt,
		ID:             m.ID,
		Contract:       m.Contract,
		Kind:           m.Kind,
		Caller:         m.Caller,
		Function:       m.Function,
		Value:          "0",
		Error:          m.Error,
		BlockTimestamp: uint64(m.BlockTimestamp),
		Success:        m.Success,
	}
	if m.Value.Int != nil {
		ret.Value = m.Value.Dec()
	}
	if m.Result != "" {
		ret.Result = json.RawMessage(m.Result)
	}
	if err := json.Unmarshal([]byte(m.Args), &ret.Args); err != nil || ret.Args == nil {
		ret.Args = []string{}
	}
	return ret
}

// ContractInfo describes a deployed contract
type ContractInfo struct {
	Address    string   `json:"address"`
	Kind       string   `json:"kind"`
	Owner      string   `json:"owner"`
	Balance    string   `json:"balance"`
	Args       []string `json:"args"`
	DeployedAt uint64   `json:"deployedAt"`
}

// Account returns the balance and nonce of an address. Unknown addresses
// have a zero balance
func (ls *LedgerState) Account(
	ctx context.Context,
	addr common.Address,
) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := ls.db.Transaction(false)
	defer txn.Release()
	return ls.getAccount(addr, txn)
}

// Balance returns the balance of an address
func (ls *LedgerState) Balance(
	ctx context.Context,
	addr common.Address,
) (*uint256.Int, error) {
	acct, err := ls.Account(ctx, addr)
	if err != nil {
		return nil, err
	}
	return acct.Balance, nil
}

// Credit mints funds into an account. It backs the development faucet
func (ls *LedgerState) Credit(
	ctx context.Context,
	addr common.Address,
	amount *uint256.Int,
) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, errors.New("credit amount must be positive")
	}
	ls.Lock()
	defer ls.Unlock()
	var ret *Account
	err := ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		// Contract balances only move through calls
		_, err := ls.getContract(addr, txn)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrCreditContract, addr.Hex())
		}
		if !errors.Is(err, ErrUnknownContract) {
			return err
		}
		if err := ls.addBalance(addr, amount, txn); err != nil {
			return err
		}
		acct, err := ls.getAccount(addr, txn)
		if err != nil {
			return err
		}
		ret = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	ls.config.Logger.Info(
		"credited account",
		"address", addr.Hex(),
		"amount", amount.Dec(),
		"component", "ledger",
	)
	return ret, nil
}

// Contract returns a deployed contract, or an error wrapping
// ErrUnknownContract
func (ls *LedgerState) Contract(
	ctx context.Context,
	addr common.Address,
) (*ContractInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := ls.db.Transaction(false)
	defer txn.Release()
	rec, err := ls.getContract(addr, txn)
	if err != nil {
		return nil, err
	}
	acct, err := ls.getAccount(addr, txn)
	if err != nil {
		return nil, err
	}
	args := rec.Args
	if args == nil {
		args = []string{}
	}
	return &ContractInfo{
		Address:    addr.Hex(),
		Kind:       rec.Kind,
		Owner:      rec.Owner.Hex(),
		Balance:    acct.Balance.Dec(),
		Args:       args,
		DeployedAt: rec.CreatedAt,
	}, nil
}

// Contracts lists deployed contracts in deploy order. An empty kind lists
// every kind
func (ls *LedgerState) Contracts(
	ctx context.Context,
	kind string,
) ([]ContractInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	campaigns, err := ls.db.GetCampaigns(kind, nil)
	if err != nil {
		return nil, err
	}
	txn := ls.db.Transaction(false)
	defer txn.Release()
	ret := make([]ContractInfo, 0, len(campaigns))
	for _, c := range campaigns {
		addr := common.HexToAddress(c.Address)
		acct, err := ls.getAccount(addr, txn)
		if err != nil {
			return nil, err
		}
		info := ContractInfo{
			Address:    c.Address,
			Kind:       c.Kind,
			Owner:      c.Owner,
			Balance:    acct.Balance.Dec(),
			DeployedAt: uint64(c.DeployedAt),
		}
		if err := json.Unmarshal([]byte(c.Args), &info.Args); err != nil {
			return nil, fmt.Errorf("decode args of %s: %w", c.Address, err)
		}
		if info.Args == nil {
			info.Args = []string{}
		}
		ret = append(ret, info)
	}
	return ret, nil
}

func (ls *LedgerState) Receipt(ctx context.Context, id string) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := ls.db.GetReceipt(id, nil)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
	}
	ret := receiptFromModel(m)
	return &ret, nil
}

// Receipts returns receipts matching filter, newest first
func (ls *LedgerState) Receipts(
	ctx context.Context,
	filter models.ReceiptFilter,
) ([]Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := ls.db.GetReceipts(filter, nil)
	if err != nil {
		return nil, err
	}
	ret := make([]Receipt, 0, len(found))
	for i := range found {
		ret = append(ret, receiptFromModel(&found[i]))
	}
	return ret, nil
}
