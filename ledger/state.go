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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/jgualp/eleccions-a-delegat/database"
	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/database/types"
	"github.com/jgualp/eleccions-a-delegat/event"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	// Contract kinds available for deployment
	_ "github.com/jgualp/eleccions-a-delegat/crowdfunding"
	_ "github.com/jgualp/eleccions-a-delegat/election"
)

const tracerName = "github.com/jgualp/eleccions-a-delegat/ledger"

var (
	// ErrUnknownContract is returned when no contract is deployed at an address
	ErrUnknownContract = errors.New("unknown contract")
	// ErrReceiptNotFound is returned by Receipt for unknown receipt IDs
	ErrReceiptNotFound = errors.New("receipt not found")
	// ErrNotReadOnly is returned by Query for state-changing functions
	ErrNotReadOnly = errors.New("function is not read-only")
	// ErrInsufficientFunds rejects a call whose caller cannot pay the attached value
	ErrInsufficientFunds = contract.NewGuardError("insufficient funds")
	// ErrSelfCall rejects a contract calling itself as the caller
	ErrSelfCall = contract.NewGuardError("contract cannot call itself")
	// ErrCreditContract rejects faucet credits into a contract account
	ErrCreditContract = errors.New("cannot credit a contract account")
)

type LedgerStateConfig struct {
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// NowFunc is the clock used for block timestamps. It defaults to time.Now
	NowFunc        func() time.Time
	DataDir        string
	BlobPlugin     string
	MetadataPlugin string
}

// LedgerState hosts deployed contracts. Calls run one at a time, each in its
// own database transaction. Queries run concurrently against read-only
// transactions
type LedgerState struct {
	sync.RWMutex
	config     LedgerStateConfig
	db         *database.Database
	tracer     trace.Tracer
	metrics    stateMetrics
	clockMutex sync.RWMutex
	manualTime uint64
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}
	ls := &LedgerState{
		config: cfg,
		tracer: otel.Tracer(tracerName),
	}
	// Init metrics
	ls.metrics.init(ls.config.PromRegistry)
	// Load database
	needsRecovery := false
	db, err := database.New(&database.Config{
		DataDir:        cfg.DataDir,
		Logger:         cfg.Logger,
		PromRegistry:   cfg.PromRegistry,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
	})
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		ls.config.Logger.Error(
			"failed to create database",
			"error", err,
			"component", "ledger",
		)
		return nil, err
	}
	ls.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			_ = db.Close()
			return nil, err
		}
		ls.config.Logger.Warn(
			"database initialization error, needs recovery",
			"error", err,
			"component", "ledger",
		)
		needsRecovery = true
	}
	if needsRecovery {
		if err := ls.recoverCommitTimestampConflict(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to recover database: %w", err)
		}
	}
	campaigns, err := ls.db.GetCampaigns("", nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ls.metrics.contracts.Set(float64(len(campaigns)))
	return ls, nil
}

// recoverCommitTimestampConflict repairs a database where the blob store
// committed a transaction that the metadata store did not. Contracts missing
// from the campaign index are indexed again, then a coordinated commit
// brings both commit timestamps back in line
func (ls *LedgerState) recoverCommitTimestampConflict() error {
	indexed := make(map[string]struct{})
	campaigns, err := ls.db.GetCampaigns("", nil)
	if err != nil {
		return err
	}
	for _, c := range campaigns {
		indexed[c.Address] = struct{}{}
	}
	prefix := []byte(types.ContractBlobKeyPrefix)
	return ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		return ls.db.BlobIterate(
			prefix,
			func(key, value []byte) error {
				addr := common.HexToAddress(string(key[len(prefix):]))
				if _, ok := indexed[addr.Hex()]; ok {
					return nil
				}
				var rec ContractRecord
				if err := cbor.Unmarshal(value, &rec); err != nil {
					return fmt.Errorf("decode contract %s: %w", addr.Hex(), err)
				}
				ls.config.Logger.Warn(
					"re-indexing contract",
					"address", addr.Hex(),
					"kind", rec.Kind,
					"component", "ledger",
				)
				return ls.db.SaveCampaign(campaignModel(addr, &rec), txn)
			},
			txn,
		)
	})
}

func campaignModel(addr common.Address, rec *ContractRecord) *models.Campaign {
	return &models.Campaign{
		Address:     addr.Hex(),
		Kind:        rec.Kind,
		Owner:       rec.Owner.Hex(),
		Args:        marshalJSON(rec.Args),
		DeployedAt:  types.Uint64(rec.CreatedAt),
		DeployNonce: rec.Nonce,
	}
}

// Database returns the underlying database
func (ls *LedgerState) Database() *database.Database {
	return ls.db
}

func (ls *LedgerState) Close() error {
	return ls.db.Close()
}

// Now returns the current block timestamp in Unix seconds
func (ls *LedgerState) Now() uint64 {
	ls.clockMutex.RLock()
	defer ls.clockMutex.RUnlock()
	if ls.manualTime != 0 {
		return ls.manualTime
	}
	return uint64(ls.config.NowFunc().Unix()) //nolint:gosec
}

// SetTime pins the block timestamp to ts, for exercising deadlines by hand.
// A zero ts returns to the configured clock
func (ls *LedgerState) SetTime(ts uint64) {
	ls.clockMutex.Lock()
	defer ls.clockMutex.Unlock()
	ls.manualTime = ts
	ls.config.Logger.Info(
		"block timestamp override",
		"timestamp", ts,
		"component", "ledger",
	)
}

func (ls *LedgerState) newCallHost(
	txn *database.Txn,
	rec *ContractRecord,
	self common.Address,
	caller common.Address,
	value *uint256.Int,
	balance *uint256.Int,
	timestamp uint64,
) *callHost {
	return &callHost{
		ls:        ls,
		txn:       txn,
		storage:   newContractStorage(ls, self, txn),
		value:     value,
		balance:   balance,
		caller:    caller,
		owner:     rec.Owner,
		self:      self,
		timestamp: timestamp,
	}
}

func (ls *LedgerState) publish(eventType event.EventType, data any) {
	if ls.config.EventBus == nil {
		return
	}
	ls.config.EventBus.PublishAsync(eventType, event.NewEvent(eventType, data))
}
