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
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Args are the textual arguments of a call: decimal amounts, 0x-prefixed
// addresses, decimal timestamps and indexes, or plain strings
type Args []string

func (a Args) get(idx int, what string) (string, error) {
	if idx < 0 || idx >= len(a) {
		return "", fmt.Errorf(
			"%w: missing argument %d (%s)",
			ErrInvalidArgument,
			idx,
			what,
		)
	}
	return strings.TrimSpace(a[idx]), nil
}

// Expect fails unless exactly n arguments were supplied
func (a Args) Expect(n int) error {
	if len(a) != n {
		return fmt.Errorf(
			"%w: expected %d arguments, got %d",
			ErrInvalidArgument,
			n,
			len(a),
		)
	}
	return nil
}

func (a Args) Amount(idx int) (*uint256.Int, error) {
	s, err := a.get(idx, "amount")
	if err != nil {
		return nil, err
	}
	return ParseAmount(s)
}

func (a Args) Address(idx int) (common.Address, error) {
	s, err := a.get(idx, "address")
	if err != nil {
		return common.Address{}, err
	}
	return ParseAddress(s)
}

func (a Args) Uint64(idx int) (uint64, error) {
	s, err := a.get(idx, "integer")
	if err != nil {
		return 0, err
	}
	ret, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidArgument, s)
	}
	return ret, nil
}

func (a Args) String(idx int) (string, error) {
	return a.get(idx, "string")
}

// ParseAmount parses a decimal amount. An empty string is rejected
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidArgument)
	}
	ret, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid amount: %w", ErrInvalidArgument, s, err)
	}
	return ret, nil
}

// ParseAddress parses a 0x-prefixed hex address
func ParseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q is not a valid address", ErrInvalidArgument, s)
	}
	return common.HexToAddress(s), nil
}

// HandlerFunc runs an endpoint. The returned value must be JSON serializable
type HandlerFunc func(h Host, args Args) (any, error)

type Endpoint struct {
	Name     string
	Handler  HandlerFunc
	Payable  bool
	ReadOnly bool
}

// EndpointSet is the public surface of a contract
type EndpointSet struct {
	byName  map[string]Endpoint
	aliases map[string]string
	order   []string
}

func NewEndpointSet(endpoints ...Endpoint) *EndpointSet {
	s := &EndpointSet{
		byName:  make(map[string]Endpoint, len(endpoints)),
		aliases: make(map[string]string),
	}
	for _, ep := range endpoints {
		if _, ok := s.byName[ep.Name]; ok {
			panic("duplicate endpoint: " + ep.Name)
		}
		s.byName[ep.Name] = ep
		s.order = append(s.order, ep.Name)
	}
	return s
}

// Alias makes an endpoint reachable under another name
func (s *EndpointSet) Alias(alias string, name string) *EndpointSet {
	if _, ok := s.byName[name]; !ok {
		panic("alias for unknown endpoint: " + name)
	}
	s.aliases[alias] = name
	return s
}

func (s *EndpointSet) Lookup(name string) (Endpoint, error) {
	if target, ok := s.aliases[name]; ok {
		name = target
	}
	ep, ok := s.byName[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return ep, nil
}

// List returns endpoints in declaration order
func (s *EndpointSet) List() []Endpoint {
	ret := make([]Endpoint, 0, len(s.order))
	for _, name := range s.order {
		ret = append(ret, s.byName[name])
	}
	return ret
}

// Contract is a deployable contract kind
type Contract interface {
	Kind() string
	// Init validates the configuration and writes it to storage
	Init(h Host, args Args) error
	Endpoints() *EndpointSet
}

// Amount renders an amount for results
func Amount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
