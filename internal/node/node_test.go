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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLedgerPersists(t *testing.T) {
	cfg := &config.Config{
		DatabasePath:   t.TempDir(),
		BlobPlugin:     config.DefaultBlobPlugin,
		MetadataPlugin: config.DefaultMetadataPlugin,
	}
	addr := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	ls, err := OpenLedger(cfg, nil)
	require.NoError(t, err)
	_, err = ls.Credit(context.Background(), addr, uint256.NewInt(25))
	require.NoError(t, err)
	require.NoError(t, ls.Close())

	ls, err = OpenLedger(cfg, nil)
	require.NoError(t, err)
	defer ls.Close() //nolint:errcheck
	bal, err := ls.Balance(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), bal.Uint64())
}

func TestMetricsServer(t *testing.T) {
	registry := prometheus.NewRegistry()
	promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "delegat_test_total",
		Help: "test counter",
	}).Inc()
	srv := newMetricsServer("127.0.0.1:0", registry)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "delegat_test_total 1")
}
