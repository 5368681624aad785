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
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches any ConfigurationError
	ErrConfiguration = errors.New("configuration error")
	// ErrGuardViolation matches any GuardError
	ErrGuardViolation = errors.New("guard violation")
	// ErrOutOfRange matches any OutOfRangeError
	ErrOutOfRange = errors.New("index out of range")

	// ErrKeyNotFound is returned by Storage.Get when a key is missing
	ErrKeyNotFound = errors.New("storage key not found")
	// ErrInvalidArgument is wrapped by all argument decoding failures
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownFunction is returned when an endpoint name is not exposed by a contract
	ErrUnknownFunction = errors.New("unknown function")
	// ErrUnknownKind is returned when no contract is registered for a kind
	ErrUnknownKind = errors.New("unknown contract kind")

	ErrNotPayable     = NewGuardError("function does not accept payment")
	ErrAlreadyInit    = ConfigurationError{Reason: "contract already initialized"}
	ErrNotInitialized = errors.New("contract not initialized")
)

// ConfigurationError rejects contract creation because of invalid parameters
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration //nolint:errorlint
}

// GuardError rejects a single action. Contracts declare their guards as
// package-level *GuardError values so callers can match the exact reason
type GuardError struct {
	Reason string
}

func NewGuardError(reason string) *GuardError {
	return &GuardError{Reason: reason}
}

func (e *GuardError) Error() string {
	return e.Reason
}

func (e *GuardError) Is(target error) bool {
	return target == ErrGuardViolation //nolint:errorlint
}

// OutOfRangeError is returned for an index outside of a list
type OutOfRangeError struct {
	Index uint64
	Len   uint64
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range (length %d)", e.Index, e.Len)
}

func (e OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange //nolint:errorlint
}

// IsRejection returns true for errors produced by contract logic rather than by the host
func IsRejection(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrGuardViolation) ||
		errors.Is(err, ErrOutOfRange)
}
