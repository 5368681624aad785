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
package node

import (
	"log/slog"

	"github.com/jgualp/eleccions-a-delegat/internal/config"
	"github.com/jgualp/eleccions-a-delegat/ledger"
)

// OpenLedger opens the ledger in cfg.DatabasePath without starting a node.
// The offline CLI commands use it, so they must not run while a node holds
// the same database
func OpenLedger(cfg *config.Config, logger *slog.Logger) (*ledger.LedgerState, error) {
	return ledger.NewLedgerState(ledger.LedgerStateConfig{
		Logger:         logger,
		DataDir:        cfg.DatabasePath,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
}
