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

// Package campaign holds the pieces shared by deadline-gated campaign
// contracts: the time window that drives their phase, the owner capability
// check and the one-shot initialization marker.
package campaign

import (
	"github.com/jgualp/eleccions-a-delegat/contract"
)

// Phase is the position of a timestamp relative to a campaign window
type Phase int

const (
	PhaseBefore Phase = iota
	PhaseActive
	PhaseAfter
)

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseActive:
		return "active"
	case PhaseAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Window is a closed interval of Unix timestamps [Start, End]
type Window struct {
	Start uint64
	End   uint64
}

// Phase is PhaseActive for Start <= now <= End
func (w Window) Phase(now uint64) Phase {
	if now < w.Start {
		return PhaseBefore
	}
	if now > w.End {
		return PhaseAfter
	}
	return PhaseActive
}

// Deadline is the end of an open-ended campaign. It is open strictly before
// the deadline instant and resolved from the deadline instant onwards
type Deadline uint64

func (d Deadline) Open(now uint64) bool {
	return now < uint64(d)
}

var ErrNotOwner = contract.NewGuardError("only owner can call this function")

// RequireOwner fails unless the caller is the contract owner
func RequireOwner(h contract.Host) error {
	if h.Caller() != h.Owner() {
		return ErrNotOwner
	}
	return nil
}

// RequireFuture validates a creation timestamp
func RequireFuture(field string, ts uint64, now uint64) error {
	if ts <= now {
		return contract.ConfigurationError{
			Field:  field,
			Reason: "must be in the future",
		}
	}
	return nil
}

const initializedKey = "initialized"

// MarkInitialized records that Init ran. It fails if it already did
func MarkInitialized(s contract.Storage) error {
	v := contract.NewSingleValue[bool](s, initializedKey)
	done, err := v.Get()
	if err != nil {
		return err
	}
	if done {
		return contract.ErrAlreadyInit
	}
	return v.Set(true)
}

// RequireInitialized fails for contracts whose Init never ran
func RequireInitialized(s contract.Storage) error {
	done, err := contract.NewSingleValue[bool](s, initializedKey).Get()
	if err != nil {
		return err
	}
	if !done {
		return contract.ErrNotInitialized
	}
	return nil
}

// Initialized wraps an endpoint handler so it only runs on initialized contracts
func Initialized(fn contract.HandlerFunc) contract.HandlerFunc {
	return func(h contract.Host, args contract.Args) (any, error) {
		if err := RequireInitialized(h.Storage()); err != nil {
			return nil, err
		}
		return fn(h, args)
	}
}
