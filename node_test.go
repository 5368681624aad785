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
package delegat_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	delegat "github.com/jgualp/eleccions-a-delegat"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewConfigValidation(t *testing.T) {
	_, err := delegat.New(delegat.NewConfig(delegat.WithListenAddress("")))
	require.Error(t, err)
	_, err = delegat.New(delegat.NewConfig(delegat.WithTracingStdout(true)))
	require.Error(t, err)
	_, err = delegat.New(delegat.NewConfig(delegat.WithShutdownTimeout(-time.Second)))
	require.Error(t, err)
}

func TestNodeRunAndStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	n, err := delegat.New(delegat.NewConfig(
		delegat.WithListenAddress("127.0.0.1:0"),
		delegat.WithDataDir(t.TempDir()),
		delegat.WithPromRegistry(prometheus.NewRegistry()),
		delegat.WithDevMode(true),
		delegat.WithNowFunc(func() time.Time { return time.Unix(1_000, 0) }),
	))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	select {
	case <-n.Started():
	case err := <-errCh:
		t.Fatalf("node exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for node start")
	}
	assert.Equal(t, uint64(1_000), n.LedgerState().Now())

	url := fmt.Sprintf("http://%s/v1/clock", n.ApiAddr())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Close = true
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for node shutdown")
	}
	// a second stop is a no-op
	require.NoError(t, n.Stop())
}

func TestNodeStopBeforeRun(t *testing.T) {
	n, err := delegat.New(delegat.NewConfig())
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	assert.Nil(t, n.ApiAddr())
}
