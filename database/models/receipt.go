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

// Receipt records the outcome of a single contract call, successful or not
type Receipt struct {
	CreatedAt time.Time `gorm:"index"`
	ID        string    `gorm:"primaryKey;size:36"`
	Contract  string    `gorm:"index;size:42"`
	Kind      string
	Caller    string `gorm:"index;size:42"`
	Function  string
	// Arguments and result as JSON
	Args           string
	Result         string
	Error          string
	Value          types.Amount
	BlockTimestamp types.Uint64
	Success        bool
}

func (Receipt) TableName() string {
	return "receipt"
}

// ReceiptFilter narrows a receipt listing. Zero values match everything
type ReceiptFilter struct {
	Contract string
	Caller   string
	Function string
	// Limit defaults to 100
	Limit  int
	Offset int
	// OnlyFailed and OnlySuccessful are mutually exclusive
	OnlyFailed     bool
	OnlySuccessful bool
}
