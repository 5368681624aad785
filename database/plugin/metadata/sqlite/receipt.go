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
	"errors"

	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/database/types"
	"gorm.io/gorm"
)

const defaultReceiptLimit = 100

func (d *MetadataStoreSqlite) SetReceipt(
	receipt *models.Receipt,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(receipt).Error
}

// GetReceipt returns nil if there is no receipt with that id
func (d *MetadataStoreSqlite) GetReceipt(
	id string,
	txn types.Txn,
) (*models.Receipt, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Receipt{}
	result := db.First(ret, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetReceipts returns matching receipts, newest first
func (d *MetadataStoreSqlite) GetReceipts(
	filter models.ReceiptFilter,
	txn types.Txn,
) ([]models.Receipt, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Receipt{})
	if filter.Contract != "" {
		query = query.Where("contract = ?", filter.Contract)
	}
	if filter.Caller != "" {
		query = query.Where("caller = ?", filter.Caller)
	}
	if filter.Function != "" {
		query = query.Where("function = ?", filter.Function)
	}
	switch {
	case filter.OnlyFailed:
		query = query.Where("success = ?", false)
	case filter.OnlySuccessful:
		query = query.Where("success = ?", true)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultReceiptLimit
	}
	var ret []models.Receipt
	result := query.
		Order("created_at DESC").
		Order("rowid DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
