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
	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/database/types"
)

// metadataTxn returns the metadata handle for txn, or nil to use the plain
// connection
func metadataTxn(txn *Txn) types.Txn {
	if txn == nil {
		return nil
	}
	return txn.Metadata()
}

// SaveCampaign adds a deployed contract to the campaign index
func (d *Database) SaveCampaign(campaign *models.Campaign, txn *Txn) error {
	return d.metadata.SetCampaign(campaign, metadataTxn(txn))
}

// GetCampaign returns nil if no campaign is indexed at address
func (d *Database) GetCampaign(
	address string,
	txn *Txn,
) (*models.Campaign, error) {
	return d.metadata.GetCampaign(address, metadataTxn(txn))
}

// GetCampaigns lists indexed campaigns in deploy order, optionally filtered
// by kind
func (d *Database) GetCampaigns(
	kind string,
	txn *Txn,
) ([]models.Campaign, error) {
	return d.metadata.GetCampaigns(kind, metadataTxn(txn))
}
