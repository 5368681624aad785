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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/database"
	"github.com/jgualp/eleccions-a-delegat/database/types"
)

// Account is the balance and nonce of an address. The nonce counts the
// contracts deployed and the calls made by the address
type Account struct {
	Balance *uint256.Int
	Address common.Address
	Nonce   uint64
}

type accountRecord struct {
	_       struct{} `cbor:",toarray"`
	Balance []byte
	Nonce   uint64
}

func (ls *LedgerState) getAccount(
	addr common.Address,
	txn *database.Txn,
) (*Account, error) {
	ret := &Account{
		Address: addr,
		Balance: new(uint256.Int),
	}
	data, err := ls.db.BlobGet(types.AccountBlobKey(addr), txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return ret, nil
		}
		return nil, err
	}
	var rec accountRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", addr.Hex(), err)
	}
	ret.Balance.SetBytes(rec.Balance)
	ret.Nonce = rec.Nonce
	return ret, nil
}

func (ls *LedgerState) putAccount(acct *Account, txn *database.Txn) error {
	rec := accountRecord{
		Balance: acct.Balance.Bytes(),
		Nonce:   acct.Nonce,
	}
	data, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	return ls.db.BlobSet(types.AccountBlobKey(acct.Address), data, txn)
}

// addBalance credits an account inside txn
func (ls *LedgerState) addBalance(
	addr common.Address,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	acct, err := ls.getAccount(addr, txn)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(acct.Balance, amount)
	if overflow {
		return fmt.Errorf("balance overflow for %s", addr.Hex())
	}
	acct.Balance = sum
	return ls.putAccount(acct, txn)
}

// ContractRecord is the blob store entry of a deployed contract
type ContractRecord struct {
	_         struct{} `cbor:",toarray"`
	Kind      string
	Owner     common.Address
	Args      []string
	CreatedAt uint64
	Nonce     uint64
}

func (ls *LedgerState) getContract(
	addr common.Address,
	txn *database.Txn,
) (*ContractRecord, error) {
	data, err := ls.db.BlobGet(types.ContractBlobKey(addr), txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownContract, addr.Hex())
		}
		return nil, err
	}
	var rec ContractRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode contract %s: %w", addr.Hex(), err)
	}
	return &rec, nil
}

func (ls *LedgerState) putContract(
	addr common.Address,
	rec *ContractRecord,
	txn *database.Txn,
) error {
	data, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	return ls.db.BlobSet(types.ContractBlobKey(addr), data, txn)
}
