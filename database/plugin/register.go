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

package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to plugin option environment variables, e.g.
// DELEGAT_DATABASE_BLOB_BADGER_DATA_DIR
const EnvPrefix = "DELEGAT_DATABASE"

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

type PluginOption struct {
	Name         string
	Type         PluginOptionType
	Description  string
	DefaultValue any
	Dest         any
}

type PluginEntry struct {
	Type               PluginType
	Name               string
	Description        string
	NewFromOptionsFunc func() Plugin
	Options            []PluginOption
}

var pluginEntries []PluginEntry

// Register adds a plugin to the registry. It is meant to be called from the
// init() of the plugin package
func Register(pluginEntry PluginEntry) {
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered plugins of a type, sorted by name
func GetPlugins(pluginType PluginType) []PluginEntry {
	var ret []PluginEntry
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	slices.SortFunc(ret, func(a, b PluginEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ret
}

// GetPlugin returns a new instance of the named plugin, or nil if it is not
// registered
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	for _, p := range pluginEntries {
		if p.Type == pluginType && p.Name == pluginName {
			return p.NewFromOptionsFunc()
		}
	}
	return nil
}

func (p *PluginEntry) flagName(opt PluginOption) string {
	return fmt.Sprintf("%s-%s-%s", PluginTypeName(p.Type), p.Name, opt.Name)
}

func (p *PluginEntry) envVarName(opt PluginOption) string {
	ret := fmt.Sprintf(
		"%s_%s_%s_%s",
		EnvPrefix,
		PluginTypeName(p.Type),
		p.Name,
		opt.Name,
	)
	return strings.ToUpper(strings.ReplaceAll(ret, "-", "_"))
}

// PopulateCmdlineOptions adds a flag for each plugin option, named
// <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			if err := opt.addToFlagSet(fs, p.flagName(opt)); err != nil {
				return fmt.Errorf(
					"%s plugin '%s': %w",
					PluginTypeName(p.Type),
					p.Name,
					err,
				)
			}
		}
	}
	return nil
}

func (o PluginOption) addToFlagSet(fs *pflag.FlagSet, name string) error {
	switch o.Type {
	case PluginOptionTypeString:
		dest, ok := o.Dest.(*string)
		def, ok2 := o.DefaultValue.(string)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected string", o.Name)
		}
		fs.StringVar(dest, name, def, o.Description)
	case PluginOptionTypeBool:
		dest, ok := o.Dest.(*bool)
		def, ok2 := o.DefaultValue.(bool)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected bool", o.Name)
		}
		fs.BoolVar(dest, name, def, o.Description)
	case PluginOptionTypeInt:
		dest, ok := o.Dest.(*int)
		def, ok2 := o.DefaultValue.(int)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected int", o.Name)
		}
		fs.IntVar(dest, name, def, o.Description)
	case PluginOptionTypeUint:
		dest, ok := o.Dest.(*uint64)
		def, ok2 := o.DefaultValue.(uint64)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected uint64", o.Name)
		}
		fs.Uint64Var(dest, name, def, o.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", o.Type, o.Name)
	}
	return nil
}

// ProcessEnvVars sets plugin options from environment variables
func ProcessEnvVars() error {
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			envVar := p.envVarName(opt)
			val, ok := os.LookupEnv(envVar)
			if !ok {
				continue
			}
			parsed, err := opt.parse(val)
			if err != nil {
				return fmt.Errorf("environment variable %s: %w", envVar, err)
			}
			if err := SetPluginOption(p.Type, p.Name, opt.Name, parsed); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o PluginOption) parse(val string) (any, error) {
	switch o.Type {
	case PluginOptionTypeString:
		return val, nil
	case PluginOptionTypeBool:
		return strconv.ParseBool(val)
	case PluginOptionTypeInt:
		return strconv.Atoi(val)
	case PluginOptionTypeUint:
		return strconv.ParseUint(val, 10, 64)
	default:
		return nil, fmt.Errorf("unknown plugin option type %d", o.Type)
	}
}

// ProcessConfig sets plugin options from a config file section, keyed by
// plugin type name, plugin name and option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, p := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(p.Type)]
		if !ok {
			continue
		}
		optConfig, ok := typeConfig[p.Name]
		if !ok {
			continue
		}
		for _, opt := range p.Options {
			val, ok := optConfig[opt.Name]
			if !ok {
				continue
			}
			// YAML decodes numbers as int and may quote anything
			if s, isString := val.(string); isString && opt.Type != PluginOptionTypeString {
				parsed, err := opt.parse(s)
				if err != nil {
					return fmt.Errorf("config option %s: %w", p.flagName(opt), err)
				}
				val = parsed
			}
			if err := SetPluginOption(p.Type, p.Name, opt.Name, val); err != nil {
				return err
			}
		}
	}
	return nil
}

var (
	runtimeMutex        sync.RWMutex
	runtimeLogger       *slog.Logger
	runtimePromRegistry prometheus.Registerer
)

// SetRuntime sets the logger and metrics registry handed to plugins created
// after this call
func SetRuntime(logger *slog.Logger, promRegistry prometheus.Registerer) {
	runtimeMutex.Lock()
	defer runtimeMutex.Unlock()
	runtimeLogger = logger
	runtimePromRegistry = promRegistry
}

// Runtime returns the values set by SetRuntime
func Runtime() (*slog.Logger, prometheus.Registerer) {
	runtimeMutex.RLock()
	defer runtimeMutex.RUnlock()
	return runtimeLogger, runtimePromRegistry
}
