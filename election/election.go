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

// Package election implements a time-boxed delegate election. The owner
// registers electors and candidacies; each elector in the census can cast a
// single vote while the voting window is open.
package election

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jgualp/eleccions-a-delegat/campaign"
	"github.com/jgualp/eleccions-a-delegat/contract"
)

const Kind = "election"

// Storage keys
const (
	keyCensus      = "cens_electors"
	keyVoters      = "registre_votants"
	keyCandidacies = "candidatures"
	keyStart       = "data_hora_inici"
	keyEnd         = "data_hora_fi"
)

// Event names
const (
	EventVoted          = "election.voted"
	EventCandidacyAdded = "election.candidacy_added"
	EventElectorAdded   = "election.elector_added"
	EventElectorRemoved = "election.elector_removed"
)

var (
	ErrElectorInCensus    = contract.NewGuardError("elector already in census")
	ErrElectorHasVoted    = contract.NewGuardError("elector has already voted")
	ErrElectorNotInCensus = contract.NewGuardError("elector not in census")
	ErrEmptyCandidacy     = contract.NewGuardError("candidacy name cannot be empty")
	ErrDuplicateCandidacy = contract.NewGuardError("candidacy already registered")
	ErrElectionClosed     = contract.NewGuardError("election is closed")
	ErrAlreadyVoted       = contract.NewGuardError("already voted")
	ErrCallerNotInCensus  = contract.NewGuardError("caller not in census")
	ErrVotingNotStarted   = contract.NewGuardError("voting has not started")
	ErrVotingEnded        = contract.NewGuardError("voting has ended")
)

// Status is the phase of an election, derived from the time only
type Status int

const (
	NotStarted Status = iota
	Voting
	Closed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Voting:
		return "Voting"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Candidacy is a vote target. Its index in the list never changes
type Candidacy struct {
	Name  string `json:"name"`
	Votes uint64 `json:"votes"`
}

type VotedEvent struct {
	Voter     common.Address `json:"voter"`
	Index     uint64         `json:"index"`
	Candidacy string         `json:"candidacy"`
}

type CandidacyEvent struct {
	Index uint64 `json:"index"`
	Name  string `json:"name"`
}

type ElectorEvent struct {
	Elector common.Address `json:"elector"`
}

// Config is the voting window. Both ends are inclusive
type Config struct {
	Start uint64
	End   uint64
}

// ConfigFromArgs decodes Init arguments in the order start, end
func ConfigFromArgs(args contract.Args) (Config, error) {
	var cfg Config
	var err error
	if err = args.Expect(2); err != nil {
		return cfg, err
	}
	if cfg.Start, err = args.Uint64(0); err != nil {
		return cfg, err
	}
	if cfg.End, err = args.Uint64(1); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate(now uint64) error {
	if err := campaign.RequireFuture(keyStart, c.Start, now); err != nil {
		return err
	}
	if c.End <= c.Start {
		return contract.ConfigurationError{
			Field:  keyEnd,
			Reason: "must be after " + keyStart,
		}
	}
	return nil
}

func (c Config) window() campaign.Window {
	return campaign.Window{Start: c.Start, End: c.End}
}

type state struct {
	census      contract.AddressSet
	voters      contract.AddressSet
	candidacies contract.Vec[Candidacy]
	start       contract.SingleValue[uint64]
	end         contract.SingleValue[uint64]
}

func newState(s contract.Storage) state {
	return state{
		census:      contract.NewAddressSet(s, keyCensus),
		voters:      contract.NewAddressSet(s, keyVoters),
		candidacies: contract.NewVec[Candidacy](s, keyCandidacies),
		start:       contract.NewSingleValue[uint64](s, keyStart),
		end:         contract.NewSingleValue[uint64](s, keyEnd),
	}
}

func (s state) config() (Config, error) {
	var cfg Config
	var err error
	if cfg.Start, err = s.start.Get(); err != nil {
		return cfg, err
	}
	if cfg.End, err = s.end.Get(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type Election struct{}

func New() *Election {
	return &Election{}
}

func init() {
	contract.Register(contract.Entry{
		Kind:        Kind,
		Description: "time-boxed delegate election",
		InitArgs:    []string{keyStart, keyEnd},
		New:         func() contract.Contract { return New() },
	})
}

func (e *Election) Kind() string {
	return Kind
}

func (e *Election) Init(h contract.Host, args contract.Args) error {
	cfg, err := ConfigFromArgs(args)
	if err != nil {
		return err
	}
	return e.Create(h, cfg)
}

// Create is Init with an already decoded configuration
func (e *Election) Create(h contract.Host, cfg Config) error {
	if err := cfg.Validate(h.BlockTimestamp()); err != nil {
		return err
	}
	if err := campaign.MarkInitialized(h.Storage()); err != nil {
		return err
	}
	st := newState(h.Storage())
	if err := st.start.Set(cfg.Start); err != nil {
		return err
	}
	return st.end.Set(cfg.End)
}

func (e *Election) Config(h contract.Host) (Config, error) {
	return newState(h.Storage()).config()
}

func (e *Election) Status(h contract.Host) (Status, error) {
	cfg, err := e.Config(h)
	if err != nil {
		return NotStarted, err
	}
	switch cfg.window().Phase(h.BlockTimestamp()) {
	case campaign.PhaseBefore:
		return NotStarted, nil
	case campaign.PhaseActive:
		return Voting, nil
	default:
		return Closed, nil
	}
}

// requireAdmin is the common guard of the owner-only setup actions
func (e *Election) requireAdmin(h contract.Host) error {
	if err := campaign.RequireOwner(h); err != nil {
		return err
	}
	status, err := e.Status(h)
	if err != nil {
		return err
	}
	if status == Closed {
		return ErrElectionClosed
	}
	return nil
}

func (e *Election) AddElector(h contract.Host, elector common.Address) error {
	if err := e.requireAdmin(h); err != nil {
		return err
	}
	st := newState(h.Storage())
	voted, err := st.voters.Contains(elector)
	if err != nil {
		return err
	}
	if voted {
		return ErrElectorHasVoted
	}
	inserted, err := st.census.Insert(elector)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrElectorInCensus
	}
	h.Emit(EventElectorAdded, ElectorEvent{Elector: elector})
	return nil
}

func (e *Election) RemoveElector(h contract.Host, elector common.Address) error {
	if err := e.requireAdmin(h); err != nil {
		return err
	}
	removed, err := newState(h.Storage()).census.Remove(elector)
	if err != nil {
		return err
	}
	if !removed {
		return ErrElectorNotInCensus
	}
	h.Emit(EventElectorRemoved, ElectorEvent{Elector: elector})
	return nil
}

// AddCandidacy appends a candidacy and returns its index
func (e *Election) AddCandidacy(h contract.Host, name string) (uint64, error) {
	if err := e.requireAdmin(h); err != nil {
		return 0, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyCandidacy
	}
	st := newState(h.Storage())
	existing, err := st.candidacies.All()
	if err != nil {
		return 0, err
	}
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return 0, ErrDuplicateCandidacy
		}
	}
	idx, err := st.candidacies.Push(Candidacy{Name: name})
	if err != nil {
		return 0, err
	}
	h.Emit(EventCandidacyAdded, CandidacyEvent{Index: idx, Name: name})
	return idx, nil
}

// Vote casts the caller's single vote for the candidacy at index
func (e *Election) Vote(h contract.Host, index uint64) error {
	st := newState(h.Storage())
	voter := h.Caller()
	voted, err := st.voters.Contains(voter)
	if err != nil {
		return err
	}
	if voted {
		return ErrAlreadyVoted
	}
	eligible, err := st.census.Contains(voter)
	if err != nil {
		return err
	}
	if !eligible {
		return ErrCallerNotInCensus
	}
	status, err := e.Status(h)
	if err != nil {
		return err
	}
	switch status {
	case NotStarted:
		return ErrVotingNotStarted
	case Closed:
		return ErrVotingEnded
	}
	candidacy, err := st.candidacies.Get(index)
	if err != nil {
		return err
	}
	candidacy.Votes++
	if err := st.candidacies.Set(index, candidacy); err != nil {
		return err
	}
	if _, err := st.voters.Insert(voter); err != nil {
		return err
	}
	if _, err := st.census.Remove(voter); err != nil {
		return err
	}
	h.Emit(EventVoted, VotedEvent{
		Voter:     voter,
		Index:     index,
		Candidacy: candidacy.Name,
	})
	return nil
}

func (e *Election) Census(h contract.Host) ([]common.Address, error) {
	return newState(h.Storage()).census.Members()
}

func (e *Election) Voters(h contract.Host) ([]common.Address, error) {
	return newState(h.Storage()).voters.Members()
}

func (e *Election) HasVoted(h contract.Host, addr common.Address) (bool, error) {
	return newState(h.Storage()).voters.Contains(addr)
}

func (e *Election) Candidacies(h contract.Host) ([]Candidacy, error) {
	return newState(h.Storage()).candidacies.All()
}
