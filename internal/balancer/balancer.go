// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

// Package balancer selects one backend from a static set given a selector-
// supplied key. Four strategies are provided: round-robin, random,
// FNV-hash and Ketama consistent hashing. All four are safe for concurrent
// use by many goroutines against one Strategy instance.
package balancer

import (
	"weir/internal/config"
)

// Backend is a balancer-visible proxy destination. The configured peer is
// carried alongside so the caller gets both in one selection.
type Backend struct {
	Address string
	Peer    config.UpstreamPeer
}

// Strategy selects a Backend for a request key. key is empty for selectors
// that do not derive one (null selector feeding RoundRobin/Random). budget
// caps the number of ring probes a hash-based strategy will make before
// giving up; it exists for forward compatibility with health checking and
// is otherwise unused since every configured backend is always healthy.
type Strategy interface {
	Select(key []byte, budget uint16) (Backend, bool)
}

// Build constructs the Strategy named by selection over the given backends.
// Backends must be non-empty; callers validate this via config.ServiceConfig
// before reaching this point.
func Build(selection config.SelectionKind, backends []Backend) (Strategy, error) {
	switch selection {
	case config.SelectionRoundRobin:
		return NewRoundRobin(backends), nil
	case config.SelectionRandom:
		return NewRandom(backends), nil
	case config.SelectionFNV:
		return NewFNV(backends), nil
	case config.SelectionKetama:
		return NewKetama(backends, DefaultReplicas), nil
	default:
		return nil, &UnknownStrategyError{Selection: selection}
	}
}

// UnknownStrategyError reports a selection kind Build does not recognize.
// config.UpstreamOptions.validate should have already excluded this case;
// it exists as a defensive backstop at construction time.
type UnknownStrategyError struct {
	Selection config.SelectionKind
}

func (e *UnknownStrategyError) Error() string {
	return "balancer: unknown selection strategy " + string(e.Selection)
}
