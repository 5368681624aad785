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

package contract_test

import (
	"errors"
	"testing"

	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	args := contract.Args{
		"1000",
		"0x000000000000000000000000000000000000000A",
		" 42 ",
		"Alt",
	}
	require.NoError(t, args.Expect(4))

	amount, err := args.Amount(0)
	require.NoError(t, err)
	assert.Equal(t, "1000", amount.Dec())

	addr, err := args.Address(1)
	require.NoError(t, err)
	assert.Equal(t, addrA, addr)

	n, err := args.Uint64(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	s, err := args.String(3)
	require.NoError(t, err)
	assert.Equal(t, "Alt", s)
}

func TestArgsInvalid(t *testing.T) {
	args := contract.Args{"-5", "not-an-address", "x"}
	testDefs := []struct {
		name string
		fn   func() error
	}{
		{"count", func() error { return args.Expect(2) }},
		{"negative amount", func() error { _, err := args.Amount(0); return err }},
		{"empty amount", func() error { _, err := contract.Args{""}.Amount(0); return err }},
		{"bad address", func() error { _, err := args.Address(1); return err }},
		{"bad integer", func() error { _, err := args.Uint64(2); return err }},
		{"missing", func() error { _, err := args.String(3); return err }},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			assert.ErrorIs(t, testDef.fn(), contract.ErrInvalidArgument)
		})
	}
}

func TestEndpointSet(t *testing.T) {
	set := contract.NewEndpointSet(
		contract.Endpoint{Name: "vote"},
		contract.Endpoint{Name: "status", ReadOnly: true},
	).Alias("votar", "vote")

	ep, err := set.Lookup("votar")
	require.NoError(t, err)
	assert.Equal(t, "vote", ep.Name)

	_, err = set.Lookup("missing")
	require.ErrorIs(t, err, contract.ErrUnknownFunction)

	names := []string{}
	for _, ep := range set.List() {
		names = append(names, ep.Name)
	}
	assert.Equal(t, []string{"vote", "status"}, names)
}

func TestErrorClasses(t *testing.T) {
	guard := contract.NewGuardError("nope")
	wrapped := errors.Join(errors.New("context"), guard)
	assert.ErrorIs(t, wrapped, contract.ErrGuardViolation)
	assert.ErrorIs(t, wrapped, guard)
	assert.NotErrorIs(t, guard, contract.NewGuardError("nope"))

	cfgErr := contract.ConfigurationError{Field: "target", Reason: "must be greater than zero"}
	assert.ErrorIs(t, cfgErr, contract.ErrConfiguration)
	assert.Equal(t, "invalid target: must be greater than zero", cfgErr.Error())

	assert.True(t, contract.IsRejection(contract.OutOfRangeError{Index: 1}))
	assert.False(t, contract.IsRejection(errors.New("disk on fire")))
}
