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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultListenAddress = ":8080"

type ApiConfig struct {
	PromRegistry  prometheus.Registerer
	ListenAddress string
	// DevMode enables the faucet and clock endpoints
	DevMode bool
}

// Api is the JSON HTTP API in front of the ledger
type Api struct {
	config     ApiConfig
	logger     *slog.Logger
	ledger     Ledger
	metrics    *apiMetrics
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

func New(cfg ApiConfig, ledger Ledger, logger *slog.Logger) *Api {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Api{
		config:  cfg,
		logger:  logger,
		ledger:  ledger,
		metrics: newApiMetrics(cfg.PromRegistry),
	}
}

// Handler returns the router serving the API
func (a *Api) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)
	r.Get("/healthz", a.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/contracts", a.handleListContracts)
		r.Post("/contracts", a.handleDeploy)
		r.Route("/contracts/{address}", func(r chi.Router) {
			r.Get("/", a.handleGetContract)
			r.Post("/call", a.handleCall)
			r.Get("/query/{function}", a.handleQuery)
			r.Get("/receipts", a.handleContractReceipts)
		})
		r.Get("/accounts/{address}", a.handleGetAccount)
		r.Get("/receipts/{id}", a.handleGetReceipt)
		r.Get("/clock", a.handleGetClock)
		r.Group(func(r chi.Router) {
			r.Use(a.requireDevMode)
			r.Post("/accounts/{address}/faucet", a.handleFaucet)
			r.Post("/clock", a.handleSetClock)
		})
	})
	return otelhttp.NewHandler(r, "delegat.api")
}

// Start binds the listen address and serves in a background goroutine. The
// server is shut down when ctx is done or Stop is called
func (a *Api) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	a.httpServer = server
	a.listenAddr = ln.Addr()
	a.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("API server error", "error", err)
		}
	}()
	a.logger.Info("API listener started on " + ln.Addr().String())

	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound address of a started server
func (a *Api) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listenAddr
}

// Stop gracefully shuts down the HTTP server
func (a *Api) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	a.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}
