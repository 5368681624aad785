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

package contract

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// Storage mappers give typed access to a contract's storage under a fixed
// logical key. Values are CBOR encoded, amounts are stored as minimal
// big-endian bytes.

// SingleValue stores one value under a key. A missing key reads as the zero value
type SingleValue[T any] struct {
	storage Storage
	key     []byte
}

func NewSingleValue[T any](s Storage, key string) SingleValue[T] {
	return SingleValue[T]{storage: s, key: []byte(key)}
}

func (v SingleValue[T]) Get() (T, error) {
	var ret T
	data, err := v.storage.Get(v.key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return ret, nil
		}
		return ret, err
	}
	if err := cbor.Unmarshal(data, &ret); err != nil {
		return ret, fmt.Errorf("decode %s: %w", v.key, err)
	}
	return ret, nil
}

func (v SingleValue[T]) Set(val T) error {
	data, err := cbor.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.key, err)
	}
	return v.storage.Set(v.key, data)
}

func (v SingleValue[T]) IsEmpty() (bool, error) {
	return isEmpty(v.storage, v.key)
}

func (v SingleValue[T]) Clear() error {
	return v.storage.Delete(v.key)
}

// AmountValue stores a single amount under a key
type AmountValue struct {
	storage Storage
	key     []byte
}

func NewAmountValue(s Storage, key string) AmountValue {
	return AmountValue{storage: s, key: []byte(key)}
}

func (v AmountValue) Get() (*uint256.Int, error) {
	return getAmount(v.storage, v.key)
}

func (v AmountValue) Set(amount *uint256.Int) error {
	return setAmount(v.storage, v.key, amount)
}

func (v AmountValue) IsEmpty() (bool, error) {
	return isEmpty(v.storage, v.key)
}

// AmountMap maps addresses to amounts under "<prefix>:<address>", with the
// address in lowercase hex. Zero amounts are never stored
type AmountMap struct {
	storage Storage
	prefix  []byte
}

func NewAmountMap(s Storage, prefix string) AmountMap {
	return AmountMap{storage: s, prefix: []byte(prefix + ":")}
}

func (m AmountMap) key(addr common.Address) []byte {
	return append(append([]byte{}, m.prefix...), hexutil.Encode(addr.Bytes())...)
}

func (m AmountMap) Get(addr common.Address) (*uint256.Int, error) {
	return getAmount(m.storage, m.key(addr))
}

func (m AmountMap) Set(addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return m.Clear(addr)
	}
	return setAmount(m.storage, m.key(addr), amount)
}

func (m AmountMap) Clear(addr common.Address) error {
	return m.storage.Delete(m.key(addr))
}

// Each calls fn for every stored entry in address order
func (m AmountMap) Each(fn func(common.Address, *uint256.Int) error) error {
	return m.storage.Iterate(m.prefix, func(k []byte, v []byte) error {
		if !common.IsHexAddress(string(k)) {
			return fmt.Errorf("corrupt key %s%s", m.prefix, k)
		}
		return fn(common.HexToAddress(string(k)), new(uint256.Int).SetBytes(v))
	})
}

// AddressSet is a set of addresses. Membership is stored under
// "<name>.item:<address>" and the size under "<name>.len"
type AddressSet struct {
	storage Storage
	itemKey []byte
	lenKey  []byte
}

func NewAddressSet(s Storage, name string) AddressSet {
	return AddressSet{
		storage: s,
		itemKey: []byte(name + ".item:"),
		lenKey:  []byte(name + ".len"),
	}
}

func (s AddressSet) key(addr common.Address) []byte {
	return append(append([]byte{}, s.itemKey...), hexutil.Encode(addr.Bytes())...)
}

func (s AddressSet) Contains(addr common.Address) (bool, error) {
	empty, err := isEmpty(s.storage, s.key(addr))
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Insert adds addr to the set and reports whether it was absent
func (s AddressSet) Insert(addr common.Address) (bool, error) {
	found, err := s.Contains(addr)
	if err != nil || found {
		return false, err
	}
	if err := s.storage.Set(s.key(addr), []byte{1}); err != nil {
		return false, err
	}
	return true, s.addLen(1)
}

// Remove deletes addr from the set and reports whether it was present
func (s AddressSet) Remove(addr common.Address) (bool, error) {
	found, err := s.Contains(addr)
	if err != nil || !found {
		return false, err
	}
	if err := s.storage.Delete(s.key(addr)); err != nil {
		return false, err
	}
	return true, s.addLen(-1)
}

func (s AddressSet) Len() (uint64, error) {
	return getUint64(s.storage, s.lenKey)
}

// Members returns all addresses in the set, in address order
func (s AddressSet) Members() ([]common.Address, error) {
	ret := []common.Address{}
	err := s.storage.Iterate(s.itemKey, func(k []byte, _ []byte) error {
		if !common.IsHexAddress(string(k)) {
			return fmt.Errorf("corrupt key %s%s", s.itemKey, k)
		}
		ret = append(ret, common.HexToAddress(string(k)))
		return nil
	})
	return ret, err
}

func (s AddressSet) addLen(delta int) error {
	n, err := s.Len()
	if err != nil {
		return err
	}
	if delta < 0 {
		n--
	} else {
		n++
	}
	return setUint64(s.storage, s.lenKey, n)
}

// Vec is an append-only list with stable indexes. Items live under
// "<name>.item:<index>" and the length under "<name>.len"
type Vec[T any] struct {
	storage Storage
	name    string
	lenKey  []byte
}

func NewVec[T any](s Storage, name string) Vec[T] {
	return Vec[T]{storage: s, name: name, lenKey: []byte(name + ".len")}
}

func (v Vec[T]) key(idx uint64) []byte {
	return []byte(v.name + ".item:" + strconv.FormatUint(idx, 10))
}

func (v Vec[T]) Len() (uint64, error) {
	return getUint64(v.storage, v.lenKey)
}

func (v Vec[T]) Get(idx uint64) (T, error) {
	var ret T
	n, err := v.Len()
	if err != nil {
		return ret, err
	}
	if idx >= n {
		return ret, OutOfRangeError{Index: idx, Len: n}
	}
	return NewSingleValue[T](v.storage, string(v.key(idx))).Get()
}

func (v Vec[T]) Set(idx uint64, val T) error {
	n, err := v.Len()
	if err != nil {
		return err
	}
	if idx >= n {
		return OutOfRangeError{Index: idx, Len: n}
	}
	return NewSingleValue[T](v.storage, string(v.key(idx))).Set(val)
}

// Push appends val and returns its index
func (v Vec[T]) Push(val T) (uint64, error) {
	n, err := v.Len()
	if err != nil {
		return 0, err
	}
	if err := NewSingleValue[T](v.storage, string(v.key(n))).Set(val); err != nil {
		return 0, err
	}
	return n, setUint64(v.storage, v.lenKey, n+1)
}

// All returns every item in index order
func (v Vec[T]) All() ([]T, error) {
	n, err := v.Len()
	if err != nil {
		return nil, err
	}
	ret := make([]T, 0, n)
	for i := range n {
		item, err := v.Get(i)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func isEmpty(s Storage, key []byte) (bool, error) {
	_, err := s.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func getAmount(s Storage, key []byte) (*uint256.Int, error) {
	data, err := s.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	if len(data) > 32 {
		return nil, fmt.Errorf("decode %s: amount too large", key)
	}
	return new(uint256.Int).SetBytes(data), nil
}

func setAmount(s Storage, key []byte, amount *uint256.Int) error {
	if amount == nil {
		amount = new(uint256.Int)
	}
	return s.Set(key, amount.Bytes())
}

func getUint64(s Storage, key []byte) (uint64, error) {
	return NewSingleValue[uint64](s, string(key)).Get()
}

func setUint64(s Storage, key []byte, val uint64) error {
	return NewSingleValue[uint64](s, string(key)).Set(val)
}
