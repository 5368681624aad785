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

package election

import (
	"github.com/jgualp/eleccions-a-delegat/campaign"
	"github.com/jgualp/eleccions-a-delegat/contract"
)

func (e *Election) Endpoints() *contract.EndpointSet {
	return contract.NewEndpointSet(
		endpoint("addElector", false, e.addElectorEndpoint),
		endpoint("removeElector", false, e.removeElectorEndpoint),
		endpoint("addCandidacy", false, e.addCandidacyEndpoint),
		endpoint("vote", false, e.voteEndpoint),
		endpoint("status", true, e.statusEndpoint),
		endpoint("getCensElectors", true, e.censusEndpoint),
		endpoint("getCandidatures", true, e.candidaciesEndpoint),
		endpoint("getCandidacyNames", true, e.candidacyNamesEndpoint),
		endpoint("getDataHoraInici", true, e.startEndpoint),
		endpoint("getDataHoraFi", true, e.endEndpoint),
		endpoint("hasVoted", true, e.hasVotedEndpoint),
		endpoint("getVoters", true, e.votersEndpoint),
	).
		Alias("add_elector", "addElector").
		Alias("remove_elector", "removeElector").
		Alias("add_candidacy", "addCandidacy").
		Alias("addCandidatura", "addCandidacy").
		Alias("votar", "vote")
}

func endpoint(name string, readOnly bool, fn contract.HandlerFunc) contract.Endpoint {
	return contract.Endpoint{
		Name:     name,
		ReadOnly: readOnly,
		Handler:  campaign.Initialized(fn),
	}
}

func (e *Election) addElectorEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	elector, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return nil, e.AddElector(h, elector)
}

func (e *Election) removeElectorEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	elector, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return nil, e.RemoveElector(h, elector)
}

func (e *Election) addCandidacyEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	name, err := args.String(0)
	if err != nil {
		return nil, err
	}
	return e.AddCandidacy(h, name)
}

func (e *Election) voteEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	index, err := args.Uint64(0)
	if err != nil {
		return nil, err
	}
	return nil, e.Vote(h, index)
}

func (e *Election) statusEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return e.Status(h)
}

func (e *Election) censusEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return e.Census(h)
}

func (e *Election) votersEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return e.Voters(h)
}

func (e *Election) candidaciesEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	return e.Candidacies(h)
}

func (e *Election) candidacyNamesEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	candidacies, err := e.Candidacies(h)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(candidacies))
	for _, c := range candidacies {
		names = append(names, c.Name)
	}
	return names, nil
}

func (e *Election) startEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	cfg, err := e.Config(h)
	return cfg.Start, err
}

func (e *Election) endEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(0); err != nil {
		return nil, err
	}
	cfg, err := e.Config(h)
	return cfg.End, err
}

func (e *Election) hasVotedEndpoint(h contract.Host, args contract.Args) (any, error) {
	if err := args.Expect(1); err != nil {
		return nil, err
	}
	addr, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	return e.HasVoted(h, addr)
}
