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

package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"weir/internal/balancer"
	"weir/internal/config"
	"weir/internal/ratelimit"
)

// ErrNoBackend is returned by UpstreamPeerPhase when the balancer's backend
// set is empty.
var ErrNoBackend = errors.New("proxy: no backend available")

// Modifiers holds the three ordered modifier lists a Service applies. Build
// order is insertion order, matching configuration order exactly.
type Modifiers struct {
	RequestFilters          []RequestFilter
	UpstreamRequestFilters  []RequestMutator
	UpstreamResponseFilters []ResponseMutator
}

// BuildModifiers constructs every modifier named in a PathControl, in
// declared order, rejecting unknown kinds.
func BuildModifiers(pc config.PathControl) (Modifiers, error) {
	var m Modifiers
	for _, setting := range pc.RequestFilters {
		kind, f, err := buildFromSetting(setting, BuildRequestFilter)
		if err != nil {
			return Modifiers{}, fmt.Errorf("request_filters[%s]: %w", kind, err)
		}
		m.RequestFilters = append(m.RequestFilters, f)
	}
	for _, setting := range pc.UpstreamRequestFilters {
		kind, f, err := buildFromSetting(setting, BuildRequestMutator)
		if err != nil {
			return Modifiers{}, fmt.Errorf("upstream_request_filters[%s]: %w", kind, err)
		}
		m.UpstreamRequestFilters = append(m.UpstreamRequestFilters, f)
	}
	for _, setting := range pc.UpstreamResponseFilters {
		kind, f, err := buildFromSetting(setting, BuildResponseMutator)
		if err != nil {
			return Modifiers{}, fmt.Errorf("upstream_response_filters[%s]: %w", kind, err)
		}
		m.UpstreamResponseFilters = append(m.UpstreamResponseFilters, f)
	}
	return m, nil
}

func buildFromSetting[T any](setting config.FilterSetting, build func(string, config.FilterSetting) (T, error)) (string, T, error) {
	kind, ok := setting["kind"]
	if !ok {
		var zero T
		return "", zero, fmt.Errorf("missing required %q key", "kind")
	}
	rest := cloneSettings(setting)
	delete(rest, "kind")
	v, err := build(kind, rest)
	return kind, v, err
}

// Service is the per-ServiceConfig phase dispatcher: it owns the balancer,
// selector, modifier lists and rate-limit gate for one configured proxy
// service.
type Service struct {
	Name      string
	Modifiers Modifiers
	Balancer  balancer.Strategy
	Selector  Selector
	Gate      *ratelimit.Gate
}

// NewService assembles a Service from a validated ServiceConfig, per the
// construction order: build modifiers, build the backend set, instantiate
// the balancer and selector, build the rate-limit gate (rules kept in
// declared order), and wire them together.
func NewService(cfg config.ServiceConfig) (*Service, error) {
	modifiers, err := BuildModifiers(cfg.PathControl)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}

	backends := make([]balancer.Backend, 0, len(cfg.Upstreams))
	for _, peer := range cfg.Upstreams {
		backends = append(backends, balancer.Backend{Address: peer.Address, Peer: peer})
	}
	strategy, err := balancer.Build(cfg.UpstreamOptions.Selection, backends)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}

	selector, err := BuildSelector(cfg.UpstreamOptions.Selector)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}

	gate, err := ratelimit.NewGate(cfg.RateLimiting.Rules)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", cfg.Name, err)
	}

	return &Service{
		Name:      cfg.Name,
		Modifiers: modifiers,
		Balancer:  strategy,
		Selector:  selector,
		Gate:      gate,
	}, nil
}

// Close stops the service's rate-limit gate. The gate's Multi rules run no
// background goroutines, so Close releases nothing.
func (s *Service) Close() {
	if s.Gate != nil {
		s.Gate.Stop()
	}
}

// BucketCacheSizes reports the live bucket count of every configured Multi
// rate-limit rule, keyed by rule kind, for the bucket-cache-size gauge.
func (s *Service) BucketCacheSizes() map[config.RateRuleKind]int {
	if s.Gate == nil {
		return nil
	}
	return s.Gate.BucketCacheSizes()
}

// RequestFilterPhase runs rate-limit checks and then every configured
// request_filters modifier, in order. handled=true means the response was
// already written (429 for rate limit, or whatever an individual modifier
// produced) and the caller must not proceed to later phases.
func (s *Service) RequestFilterPhase(ctx *RequestContext, w http.ResponseWriter, r *http.Request) (handled bool, err error) {
	if outcome, ruleKind := s.Gate.Check(ctx.ClientAddr, r.URL.Path); outcome == ratelimit.Declined {
		ctx.DeclinedRuleKind = ruleKind
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return true, nil
	}

	for _, f := range s.Modifiers.RequestFilters {
		handled, err := f.RequestFilter(ctx, w, r)
		if err != nil {
			return false, err
		}
		if handled {
			return true, nil
		}
	}
	return false, nil
}

// UpstreamPeerPhase computes the selector key, asks the balancer to pick a
// backend, and clears the context's scratch buffer before returning.
func (s *Service) UpstreamPeerPhase(ctx *RequestContext, r *http.Request) (balancer.Backend, error) {
	key := s.Selector(ctx, r)
	backend, ok := s.Balancer.Select(key, 0)
	ctx.SelectorBuf = ctx.SelectorBuf[:0]
	if !ok {
		return balancer.Backend{}, ErrNoBackend
	}
	return backend, nil
}

// UpstreamRequestFilterPhase applies every upstream_request_filters modifier
// in order to the outgoing request.
func (s *Service) UpstreamRequestFilterPhase(ctx *RequestContext, r *http.Request) error {
	for _, m := range s.Modifiers.UpstreamRequestFilters {
		if err := m.UpstreamRequestFilter(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// UpstreamResponseFilterPhase applies every upstream_response_filters
// modifier in order to the response received from the backend.
func (s *Service) UpstreamResponseFilterPhase(ctx *RequestContext, resp *http.Response) error {
	for _, m := range s.Modifiers.UpstreamResponseFilters {
		if err := m.UpstreamResponseFilter(ctx, resp); err != nil {
			return err
		}
	}
	return nil
}
