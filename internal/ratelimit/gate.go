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

package ratelimit

import (
	"net/netip"

	"weir/internal/config"
)

// Gate runs every configured rule against one request. Every applicable
// rule (one whose pattern matches, or whose kind always applies) is tried
// eagerly; the first Declined ticket rejects the request immediately. This
// means an earlier-listed rule's bucket may be spent even though a
// later-listed rule is the one that ultimately declines; that is an
// accepted approximation, not a bug.
type Gate struct {
	raters []Rater
}

// NewGate builds a Gate from a service's configured rate rules, in the
// order they were declared.
func NewGate(rules []config.RateRule) (*Gate, error) {
	g := &Gate{raters: make([]Rater, 0, len(rules))}
	for _, rule := range rules {
		r, err := Build(rule)
		if err != nil {
			return nil, err
		}
		g.raters = append(g.raters, r)
	}
	return g, nil
}

// Check runs every rule. sourceIP may be the zero netip.Addr (for example, a
// UDS client has none); rules that need it then simply do not apply, per the
// no-key-skip convention. The returned RateRuleKind names the rule that
// declined the request, for metrics labeling; it is empty on Approved.
func (g *Gate) Check(sourceIP netip.Addr, uriPath string) (Outcome, config.RateRuleKind) {
	for _, r := range g.raters {
		outcome, matched := r.TryAcquire(sourceIP, uriPath)
		if matched && outcome == Declined {
			return Declined, r.Kind()
		}
	}
	return Approved, ""
}

// BucketCacheSizes reports the live bucket count of every Multi rule, keyed
// by rule kind, for the bucket-cache-size gauge.
func (g *Gate) BucketCacheSizes() map[config.RateRuleKind]int {
	sizes := make(map[config.RateRuleKind]int)
	for _, r := range g.raters {
		if m, ok := r.(*Multi); ok {
			sizes[m.Kind()] = m.CacheSize()
		}
	}
	return sizes
}

// Stop calls Stop on every Multi rule. Multi rules own no background
// goroutines, so this releases nothing.
func (g *Gate) Stop() {
	for _, r := range g.raters {
		if m, ok := r.(*Multi); ok {
			m.Stop()
		}
	}
}
