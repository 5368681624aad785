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

// SetCampaign inserts a campaign index row. Addresses are unique, so a
// second insert for the same address fails
func (d *MetadataStoreSqlite) SetCampaign(
	campaign *models.Campaign,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(campaign).Error
}

// GetCampaign returns nil if the address is unknown
func (d *MetadataStoreSqlite) GetCampaign(
	address string,
	txn types.Txn,
) (*models.Campaign, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Campaign{}
	result := db.First(ret, "address = ?", address)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetCampaigns lists campaigns in deployment order, optionally filtered by kind
func (d *MetadataStoreSqlite) GetCampaigns(
	kind string,
	txn types.Txn,
) ([]models.Campaign, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Campaign
	query := db.Order("id")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
