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

// Package contracttest provides an in-memory contract host for tests
package contracttest

import (
	"bytes"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/contract"
)

// MemoryStorage is a map-backed contract.Storage
type MemoryStorage struct {
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(key []byte) ([]byte, error) {
	val, ok := m.data[string(key)]
	if !ok {
		return nil, contract.ErrKeyNotFound
	}
	return bytes.Clone(val), nil
}

func (m *MemoryStorage) Set(key []byte, value []byte) error {
	m.data[string(key)] = bytes.Clone(value)
	return nil
}

func (m *MemoryStorage) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *MemoryStorage) Iterate(
	prefix []byte,
	fn func(key []byte, value []byte) error,
) error {
	keys := slices.Sorted(maps.Keys(m.data))
	for _, k := range keys {
		if !strings.HasPrefix(k, string(prefix)) {
			continue
		}
		if err := fn([]byte(k[len(prefix):]), bytes.Clone(m.data[k])); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns all stored keys in order
func (m *MemoryStorage) Keys() []string {
	return slices.Sorted(maps.Keys(m.data))
}

type Transfer struct {
	To     common.Address
	Amount *uint256.Int
}

type Event struct {
	Name string
	Data any
}

// Host is a contract.Host with directly settable fields. Use Call to get the
// same payment and rollback behavior as the ledger
type Host struct {
	Now        uint64
	CallerAddr common.Address
	OwnerAddr  common.Address
	Self       common.Address
	Value      *uint256.Int
	Funds      *uint256.Int
	Store      *MemoryStorage
	Transfers  []Transfer
	Events     []Event
}

func NewHost(owner common.Address, now uint64) *Host {
	return &Host{
		Now:        now,
		CallerAddr: owner,
		OwnerAddr:  owner,
		Self:       common.HexToAddress("0x00000000000000000000000000000000c0ffee00"),
		Value:      new(uint256.Int),
		Funds:      new(uint256.Int),
		Store:      NewMemoryStorage(),
	}
}

func (h *Host) BlockTimestamp() uint64      { return h.Now }
func (h *Host) Caller() common.Address      { return h.CallerAddr }
func (h *Host) Owner() common.Address       { return h.OwnerAddr }
func (h *Host) SelfAddress() common.Address { return h.Self }
func (h *Host) CallValue() *uint256.Int     { return h.Value.Clone() }
func (h *Host) Balance() *uint256.Int       { return h.Funds.Clone() }
func (h *Host) Storage() contract.Storage   { return h.Store }

func (h *Host) Emit(name string, data any) {
	h.Events = append(h.Events, Event{Name: name, Data: data})
}

func (h *Host) Transfer(to common.Address, amount *uint256.Int) error {
	if amount.Gt(h.Funds) {
		return errors.New("insufficient contract balance")
	}
	h.Funds = new(uint256.Int).Sub(h.Funds, amount)
	h.Transfers = append(h.Transfers, Transfer{To: to, Amount: amount.Clone()})
	return nil
}

// Call invokes an endpoint as caller with an attached payment. On error all
// storage, balance, transfer and event changes are discarded; on success the
// payment is credited to the contract
func (h *Host) Call(
	c contract.Contract,
	caller common.Address,
	value uint64,
	function string,
	args ...string,
) (any, error) {
	ep, err := c.Endpoints().Lookup(function)
	if err != nil {
		return nil, err
	}
	payment := uint256.NewInt(value)
	if !ep.Payable && !payment.IsZero() {
		return nil, contract.ErrNotPayable
	}
	snapData := maps.Clone(h.Store.data)
	snapFunds := h.Funds.Clone()
	snapTransfers := len(h.Transfers)
	snapEvents := len(h.Events)
	h.CallerAddr = caller
	h.Value = payment
	ret, err := ep.Handler(h, contract.Args(args))
	h.Value = new(uint256.Int)
	if err != nil {
		h.Store.data = snapData
		h.Funds = snapFunds
		h.Transfers = h.Transfers[:snapTransfers]
		h.Events = h.Events[:snapEvents]
		return nil, err
	}
	h.Funds = new(uint256.Int).Add(h.Funds, payment)
	return ret, nil
}

// Deploy runs Init as the owner
func (h *Host) Deploy(c contract.Contract, args ...string) error {
	h.CallerAddr = h.OwnerAddr
	return c.Init(h, contract.Args(args))
}
