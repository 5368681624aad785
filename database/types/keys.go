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

package types

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	AccountBlobKeyPrefix  = "acct:"
	ContractBlobKeyPrefix = "contract:"
	StateBlobKeyPrefix    = "state:"
)

// addressKey renders addresses in lowercase so keys sort by address bytes
func addressKey(addr common.Address) []byte {
	return []byte(hexutil.Encode(addr.Bytes()))
}

func AccountBlobKey(addr common.Address) []byte {
	return slices.Concat([]byte(AccountBlobKeyPrefix), addressKey(addr))
}

func ContractBlobKey(addr common.Address) []byte {
	return slices.Concat([]byte(ContractBlobKeyPrefix), addressKey(addr))
}

// StateBlobPrefix is the storage namespace of a single contract
func StateBlobPrefix(addr common.Address) []byte {
	return slices.Concat(
		[]byte(StateBlobKeyPrefix),
		addressKey(addr),
		[]byte(":"),
	)
}

func StateBlobKey(addr common.Address, key []byte) []byte {
	return slices.Concat(StateBlobPrefix(addr), key)
}
