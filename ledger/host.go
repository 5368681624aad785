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
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/jgualp/eleccions-a-delegat/database"
	"github.com/jgualp/eleccions-a-delegat/database/types"
)

type emittedEvent struct {
	name string
	data any
}

// callHost is the contract.Host for a single call. All writes go through txn
type callHost struct {
	ls        *LedgerState
	txn       *database.Txn
	storage   *contractStorage
	value     *uint256.Int
	balance   *uint256.Int
	events    []emittedEvent
	caller    common.Address
	owner     common.Address
	self      common.Address
	timestamp uint64
}

func (h *callHost) BlockTimestamp() uint64      { return h.timestamp }
func (h *callHost) Caller() common.Address      { return h.caller }
func (h *callHost) Owner() common.Address       { return h.owner }
func (h *callHost) SelfAddress() common.Address { return h.self }
func (h *callHost) CallValue() *uint256.Int     { return h.value.Clone() }
func (h *callHost) Balance() *uint256.Int       { return h.balance.Clone() }
func (h *callHost) Storage() contract.Storage   { return h.storage }

func (h *callHost) Emit(name string, data any) {
	h.events = append(h.events, emittedEvent{name: name, data: data})
}

// Transfer debits the contract's running balance and credits the recipient
// in the same transaction. The contract account itself is written once the
// handler returns
func (h *callHost) Transfer(to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if amount.Gt(h.balance) {
		return fmt.Errorf(
			"transfer of %s exceeds contract balance %s",
			amount.Dec(),
			h.balance.Dec(),
		)
	}
	if to == h.self {
		return nil
	}
	if err := h.ls.addBalance(to, amount, h.txn); err != nil {
		return err
	}
	h.balance = new(uint256.Int).Sub(h.balance, amount)
	return nil
}

// contractStorage maps logical contract keys into the contract's namespace
// in the blob store
type contractStorage struct {
	ls     *LedgerState
	txn    *database.Txn
	prefix []byte
}

func newContractStorage(
	ls *LedgerState,
	addr common.Address,
	txn *database.Txn,
) *contractStorage {
	return &contractStorage{
		ls:     ls,
		txn:    txn,
		prefix: types.StateBlobPrefix(addr),
	}
}

func (s *contractStorage) key(key []byte) []byte {
	ret := make([]byte, 0, len(s.prefix)+len(key))
	ret = append(ret, s.prefix...)
	return append(ret, key...)
}

func (s *contractStorage) Get(key []byte) ([]byte, error) {
	val, err := s.ls.db.BlobGet(s.key(key), s.txn)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, contract.ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

func (s *contractStorage) Set(key []byte, value []byte) error {
	return s.ls.db.BlobSet(s.key(key), value, s.txn)
}

func (s *contractStorage) Delete(key []byte) error {
	return s.ls.db.BlobDelete(s.key(key), s.txn)
}

func (s *contractStorage) Iterate(
	prefix []byte,
	fn func(key []byte, value []byte) error,
) error {
	return s.ls.db.BlobIterate(
		s.key(prefix),
		func(key, value []byte) error {
			return fn(bytes.TrimPrefix(key, s.key(prefix)), value)
		},
		s.txn,
	)
}
