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

package database

import (
	"github.com/jgualp/eleccions-a-delegat/database/types"
)

// BlobGet returns the value stored under key. Missing keys return
// types.ErrBlobKeyNotFound
func (d *Database) BlobGet(key []byte, txn *Txn) ([]byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	if txn.Blob() == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return d.blob.Get(txn.Blob(), key)
}

// BlobSet stores a value. A nil txn writes through a short-lived transaction
func (d *Database) BlobSet(key, value []byte, txn *Txn) error {
	if txn == nil {
		return d.Transaction(true).Do(func(txn *Txn) error {
			return d.BlobSet(key, value, txn)
		})
	}
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	return d.blob.Set(txn.Blob(), key, value)
}

func (d *Database) BlobDelete(key []byte, txn *Txn) error {
	if txn == nil {
		return d.Transaction(true).Do(func(txn *Txn) error {
			return d.BlobDelete(key, txn)
		})
	}
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	return d.blob.Delete(txn.Blob(), key)
}

// BlobIterate calls fn for every key with the given prefix, in key order.
// Iteration stops at the first error returned by fn
func (d *Database) BlobIterate(
	prefix []byte,
	fn func(key, value []byte) error,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	if txn.Blob() == nil {
		return types.ErrBlobStoreUnavailable
	}
	iter := d.blob.NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.Key(), val); err != nil {
			return err
		}
	}
	return iter.Err()
}
