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
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jgualp/eleccions-a-delegat/database/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPlugin struct{}

func (testPlugin) Start() error { return nil }
func (testPlugin) Stop() error  { return nil }

var testPluginOptions struct {
	dir  string
	size uint64
}

func init() {
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               "configtest",
		NewFromOptionsFunc: func() plugin.Plugin { return testPlugin{} },
		Options: []plugin.PluginOption{
			{Name: "dir", Type: plugin.PluginOptionTypeString, DefaultValue: "", Dest: &testPluginOptions.dir},
			{Name: "size", Type: plugin.PluginOptionTypeUint, DefaultValue: uint64(0), Dest: &testPluginOptions.size},
		},
	})
}

func resetGlobalConfig() {
	globalConfig = defaultConfig()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "delegat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfigFile(t *testing.T) {
	resetGlobalConfig()
	path := writeConfig(t, `
databasePath: "/var/lib/delegat"
bindAddr: "127.0.0.1"
apiPort: 9000
devMode: true
tracing: true
shutdownTimeout: "5s"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	expected := defaultConfig()
	expected.DatabasePath = "/var/lib/delegat"
	expected.BindAddr = "127.0.0.1"
	expected.ApiPort = 9000
	expected.DevMode = true
	expected.Tracing = true
	expected.ShutdownTimeout = "5s"
	assert.Equal(t, expected, cfg)
	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoadConfigSection(t *testing.T) {
	resetGlobalConfig()
	path := writeConfig(t, `
config:
  metricsPort: 9100
  tracingStdout: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(9100), cfg.MetricsPort)
	assert.True(t, cfg.TracingStdout)
	assert.Equal(t, uint(8080), cfg.ApiPort)
}

func TestLoadPluginSections(t *testing.T) {
	resetGlobalConfig()
	path := writeConfig(t, `
database:
  metadata:
    plugin: configtest
    configtest:
      dir: /srv/delegat
      size: 42
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "configtest", cfg.MetadataPlugin)
	assert.Equal(t, DefaultBlobPlugin, cfg.BlobPlugin)
	assert.Equal(t, "/srv/delegat", testPluginOptions.dir)
	assert.Equal(t, uint64(42), testPluginOptions.size)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	resetGlobalConfig()
	path := writeConfig(t, "apiPort: 9000\n")
	t.Setenv("DELEGAT_API_PORT", "9001")
	t.Setenv("DELEGAT_DEV_MODE", "true")
	t.Setenv("DELEGAT_DATABASE_BLOB_PLUGIN", "custom")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(9001), cfg.ApiPort)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "custom", cfg.BlobPlugin)
}

func TestValidation(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
	}{
		{"port out of range", "apiPort: 70000\n"},
		{"port clash", "apiPort: 9000\nmetricsPort: 9000\n"},
		{"bad timeout", "shutdownTimeout: soon\n"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			resetGlobalConfig()
			_, err := LoadConfig(writeConfig(t, testDef.content))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestMalformedFile(t *testing.T) {
	resetGlobalConfig()
	_, err := LoadConfig(writeConfig(t, "apiPort: [1, 2\n"))
	require.Error(t, err)
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
