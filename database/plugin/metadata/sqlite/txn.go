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

package sqlite

import (
	"github.com/jgualp/eleccions-a-delegat/database/types"
	"gorm.io/gorm"
)

// sqliteTxn wraps a gorm transaction and implements types.Txn
type sqliteTxn struct {
	db       *gorm.DB
	finished bool
	beginErr error
}

func (t *sqliteTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Commit().Error
}

func (t *sqliteTxn) Rollback() error {
	if t.beginErr != nil || t.finished {
		return nil
	}
	t.finished = true
	return t.db.Rollback().Error
}

// Transaction begins a new transaction. A failure to begin is reported by
// every later use of the handle
func (d *MetadataStoreSqlite) Transaction() types.Txn {
	db := d.DB().Begin()
	if db.Error != nil {
		d.logger.Error(
			"failed to begin transaction",
			"error", db.Error,
			"component", "database",
		)
		return &sqliteTxn{beginErr: db.Error}
	}
	return &sqliteTxn{db: db}
}

// resolveDB returns the *gorm.DB for the given transaction, or d.DB() if txn
// is nil
func (d *MetadataStoreSqlite) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.DB(), nil
	}
	stx, ok := txn.(*sqliteTxn)
	if !ok || stx == nil {
		return nil, types.ErrTxnWrongType
	}
	if stx.beginErr != nil {
		return nil, stx.beginErr
	}
	if stx.finished {
		return nil, gorm.ErrInvalidTransaction
	}
	return stx.db, nil
}
