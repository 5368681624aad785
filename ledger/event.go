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
package ledger

import (
	"github.com/jgualp/eleccions-a-delegat/event"
)

const (
	CampaignDeployedEventType event.EventType = "campaign.deployed"
	CampaignCalledEventType   event.EventType = "campaign.called"
	// ContractEventType carries the events emitted by contract code
	ContractEventType event.EventType = "campaign.event"
)

// CampaignDeployedEvent is published after a contract is deployed
type CampaignDeployedEvent struct {
	Address        string
	Kind           string
	Owner          string
	BlockTimestamp uint64
}

// CampaignCalledEvent is published after a call commits
type CampaignCalledEvent struct {
	ReceiptID      string
	Contract       string
	Kind           string
	Caller         string
	Function       string
	Value          string
	BlockTimestamp uint64
}

// ContractEvent wraps a value passed to Host.Emit. Data holds the contract's
// own event type, e.g. crowdfunding.FundedEvent
type ContractEvent struct {
	Data      any
	ReceiptID string
	Contract  string
	Kind      string
	Name      string
}
