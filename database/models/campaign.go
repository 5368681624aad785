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

package models

import (
	"time"

	"github.com/jgualp/eleccions-a-delegat/database/types"
)

// Campaign indexes a deployed contract. The authoritative record lives in
// the blob store
type Campaign struct {
	CreatedAt time.Time
	Address   string `gorm:"uniqueIndex;size:42"`
	Kind      string `gorm:"index"`
	Owner     string `gorm:"index;size:42"`
	// Init arguments as a JSON array
	Args        string
	DeployedAt  types.Uint64
	ID          uint `gorm:"primarykey"`
	DeployNonce uint64
}

func (Campaign) TableName() string {
	return "campaign"
}
