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
package delegat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/jgualp/eleccions-a-delegat/api"
	"github.com/jgualp/eleccions-a-delegat/event"
	"github.com/jgualp/eleccions-a-delegat/ledger"
)

type Node struct {
	eventBus      *event.EventBus
	ledgerState   *ledger.LedgerState
	api           *api.Api
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	started       chan struct{}
	startOnce     sync.Once
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
		started:  make(chan struct{}),
	}
	return n, nil
}

// Run starts the node and blocks until ctx is done or Stop is called. The
// node is shut down before Run returns
func (n *Node) Run(ctx context.Context) error {
	if err := n.start(ctx); err != nil {
		if stopErr := n.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		return err
	}
	n.startOnce.Do(func() { close(n.started) })
	select {
	case <-ctx.Done():
		n.config.logger.Info(
			"context done, shutting down",
			"component", "delegat",
		)
		return n.Stop()
	case <-n.done:
		return nil
	}
}

func (n *Node) start(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load state
	state, err := ledger.NewLedgerState(
		ledger.LedgerStateConfig{
			Logger:         n.config.logger,
			EventBus:       n.eventBus,
			PromRegistry:   n.config.promRegistry,
			NowFunc:        n.config.nowFunc,
			DataDir:        n.config.dataDir,
			BlobPlugin:     n.config.blobPlugin,
			MetadataPlugin: n.config.metadataPlugin,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load ledger state: %w", err)
	}
	n.ledgerState = state
	// Log contract events
	n.eventBus.SubscribeFunc(ledger.ContractEventType, n.logContractEvent)
	n.eventBus.SubscribeFunc(ledger.CampaignDeployedEventType, n.logContractEvent)
	// Start API
	n.api = api.New(
		api.ApiConfig{
			PromRegistry:  n.config.promRegistry,
			ListenAddress: n.config.listenAddress,
			DevMode:       n.config.devMode,
		},
		n.ledgerState,
		n.config.logger,
	)
	//nolint:contextcheck
	apiCtx, apiCancel := context.WithCancel(context.Background())
	n.shutdownFuncs = append(n.shutdownFuncs, func(context.Context) error {
		apiCancel()
		return nil
	})
	if err := n.api.Start(apiCtx); err != nil {
		return err
	}
	return nil
}

func (n *Node) logContractEvent(evt event.Event) {
	n.config.logger.Debug(
		"contract event",
		"type", evt.Type,
		"data", evt.Data,
		"component", "delegat",
	)
}

// Started is closed once Run has started all components
func (n *Node) Started() <-chan struct{} {
	return n.started
}

// LedgerState returns the ledger of a started node
func (n *Node) LedgerState() *ledger.LedgerState {
	return n.ledgerState
}

// ApiAddr returns the bound address of the API listener
func (n *Node) ApiAddr() net.Addr {
	if n.api == nil {
		return nil
	}
	return n.api.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		n.config.shutdownTimeout,
	)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "delegat")

	// Stop accepting new work
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Deliver pending events before the database goes away
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	if n.ledgerState != nil {
		if closeErr := n.ledgerState.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("ledger state close: %w", closeErr),
			)
		}
	}

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete", "component", "delegat")
	close(n.done)
	return err
}
