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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Host is everything a contract can see of the ledger it runs on. A host
// instance is scoped to a single call against a single contract, and all of
// its effects are discarded if the call returns an error.
type Host interface {
	// BlockTimestamp returns the current time in Unix seconds
	BlockTimestamp() uint64
	// Caller returns the address that sent the call
	Caller() common.Address
	// Owner returns the address that deployed the contract
	Owner() common.Address
	// SelfAddress returns the address of the contract
	SelfAddress() common.Address
	// CallValue returns the payment attached to the call
	CallValue() *uint256.Int
	// Balance returns the contract balance, not including CallValue
	Balance() *uint256.Int
	// Transfer moves funds from the contract to another account
	Transfer(to common.Address, amount *uint256.Int) error
	// Storage returns the contract's persistent key-value storage
	Storage() Storage
	// Emit records a contract event. Events are only published if the call succeeds
	Emit(name string, data any)
}

// Storage is a contract-private key-value store
type Storage interface {
	// Get returns ErrKeyNotFound if the key does not exist
	Get(key []byte) ([]byte, error)
	Set(key []byte, value []byte) error
	Delete(key []byte) error
	// Iterate calls fn for every key with the given prefix, in key order. The
	// key passed to fn has the prefix removed
	Iterate(prefix []byte, fn func(key []byte, value []byte) error) error
}
