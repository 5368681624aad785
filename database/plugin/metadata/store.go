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

package metadata

import (
	"fmt"

	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/database/plugin"
	"github.com/jgualp/eleccions-a-delegat/database/types"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	plugin.Plugin
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Campaign index
	SetCampaign(*models.Campaign, types.Txn) error
	GetCampaign(string, types.Txn) (*models.Campaign, error)
	GetCampaigns(string, types.Txn) ([]models.Campaign, error)

	// Receipts
	SetReceipt(*models.Receipt, types.Txn) error
	GetReceipt(string, types.Txn) (*models.Receipt, error)
	GetReceipts(models.ReceiptFilter, types.Txn) ([]models.Receipt, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
