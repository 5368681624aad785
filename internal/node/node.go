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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	delegat "github.com/jgualp/eleccions-a-delegat"
	"github.com/jgualp/eleccions-a-delegat/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run runs the node described by cfg until SIGINT or SIGTERM, serving
// prometheus metrics on the side
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	d, err := delegat.New(
		delegat.NewConfig(
			delegat.WithLogger(logger),
			delegat.WithDataDir(cfg.DatabasePath),
			delegat.WithBlobPlugin(cfg.BlobPlugin),
			delegat.WithMetadataPlugin(cfg.MetadataPlugin),
			delegat.WithListenAddress(
				fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
			),
			delegat.WithDevMode(cfg.DevMode),
			delegat.WithTracing(cfg.Tracing),
			delegat.WithTracingStdout(cfg.TracingStdout),
			delegat.WithShutdownTimeout(shutdownTimeout),
			// Enable metrics with default prometheus registry
			delegat.WithPromRegistry(prometheus.DefaultRegisterer),
		),
	)
	if err != nil {
		return err
	}
	if cfg.DevMode {
		logger.Warn(
			"dev mode enabled: faucet and clock endpoints are open",
			"component", "node",
		)
	}
	// Metrics listener
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		metricsServer = newMetricsServer(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort),
			prometheus.DefaultGatherer,
		)
		logger.Info(
			"serving prometheus metrics on "+metricsServer.Addr,
			"component", "node",
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
			}
		}()
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	runErr := d.Run(signalCtx)
	if runErr != nil {
		logger.Error("node error", "error", runErr, "component", "node")
	} else {
		logger.Info("shutdown complete", "component", "node")
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(
				"metrics server shutdown error",
				"error", err,
				"component", "node",
			)
		}
	}
	return runErr
}

func newMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
