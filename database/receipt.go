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
)

func (d *Database) SaveReceipt(receipt *models.Receipt, txn *Txn) error {
	return d.metadata.SetReceipt(receipt, metadataTxn(txn))
}

// GetReceipt returns nil if there is no receipt with the given ID
func (d *Database) GetReceipt(id string, txn *Txn) (*models.Receipt, error) {
	return d.metadata.GetReceipt(id, metadataTxn(txn))
}

func (d *Database) GetReceipts(
	filter models.ReceiptFilter,
	txn *Txn,
) ([]models.Receipt, error) {
	return d.metadata.GetReceipts(filter, metadataTxn(txn))
}
