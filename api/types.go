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
package api

import (
	"github.com/jgualp/eleccions-a-delegat/ledger"
)

type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	ReceiptID string `json:"receiptId,omitempty"`
}

type DeployRequest struct {
	Kind  string   `json:"kind"`
	Owner string   `json:"owner"`
	Args  []string `json:"args"`
}

type DeployResponse struct {
	Address string `json:"address"`
}

type CallRequest struct {
	Caller   string   `json:"caller"`
	Function string   `json:"function"`
	Value    string   `json:"value,omitempty"`
	Args     []string `json:"args"`
}

type QueryResponse struct {
	Result any `json:"result"`
}

type AccountResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type FaucetRequest struct {
	Amount string `json:"amount"`
}

type ClockRequest struct {
	Timestamp uint64 `json:"timestamp"`
}

type ClockResponse struct {
	Timestamp uint64 `json:"timestamp"`
}

type ReceiptsResponse struct {
	Receipts []ledger.Receipt `json:"receipts"`
}

type ContractsResponse struct {
	Contracts []ledger.ContractInfo `json:"contracts"`
}
