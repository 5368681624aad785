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

package contract

import (
	"fmt"
	"slices"
	"sync"
)

type Entry struct {
	Kind        string
	Description string
	// InitArgs names the Init arguments, in order
	InitArgs []string
	New      func() Contract
}

var (
	registry   = map[string]Entry{}
	registryMu sync.RWMutex
)

// Register makes a contract kind deployable. It is meant to be called from
// package init functions
func Register(entry Entry) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[entry.Kind] = entry
}

// Lookup returns a new instance of the contract registered for kind
func Lookup(kind string) (Contract, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	entry, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return entry.New(), nil
}

// Entries returns all registered kinds sorted by name
func Entries() []Entry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ret := make([]Entry, 0, len(registry))
	for _, entry := range registry {
		ret = append(ret, entry)
	}
	slices.SortFunc(ret, func(a, b Entry) int {
		if a.Kind < b.Kind {
			return -1
		}
		if a.Kind > b.Kind {
			return 1
		}
		return 0
	})
	return ret
}
