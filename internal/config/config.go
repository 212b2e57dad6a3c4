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

// Package config holds the validated, internal configuration record consumed by
// the proxy core. Load and Parse decode a YAML document into a Config and
// validate it; doc.go shows the document shape.
package config

import (
	"fmt"
	"time"
)

// SelectionKind names a load-balancer strategy.
type SelectionKind string

const (
	SelectionRoundRobin SelectionKind = "round_robin"
	SelectionRandom     SelectionKind = "random"
	SelectionFNV        SelectionKind = "fnv"
	SelectionKetama     SelectionKind = "ketama"
)

// SelectorKind names a request-key selector used to feed hash-based balancers.
type SelectorKind string

const (
	SelectorNull            SelectorKind = "null"
	SelectorURIPath         SelectorKind = "uri_path"
	SelectorSrcAddrURIPath  SelectorKind = "src_addr_uri_path"
)

// HealthKind is reserved config surface. Only "none" is modeled by the core.
type HealthKind string

const HealthNone HealthKind = "none"

// DiscoveryKind is reserved config surface. Only "static" is modeled by the core.
type DiscoveryKind string

const DiscoveryStatic DiscoveryKind = "static"

// ALPN names the protocol(s) an upstream peer is willing to speak.
type ALPN string

const (
	ALPNH1      ALPN = "h1"
	ALPNH2      ALPN = "h2"
	ALPNH2OrH1  ALPN = "h2_or_h1"
)

// Scheme names the transport an upstream peer is reached over.
type Scheme string

const (
	SchemePlain Scheme = "plain"
	SchemeTLS   Scheme = "tls"
)

// TLSConfig names the on-disk material for a TLS-terminating listener.
type TLSConfig struct {
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

// ListenerKind is a closed union: exactly one of TCP or UDS is populated.
type ListenerKind struct {
	// TCP fields
	Addr    string     `yaml:"addr,omitempty"`
	TLS     *TLSConfig `yaml:"tls,omitempty"`
	OfferH2 bool       `yaml:"offer_h2,omitempty"`

	// UDS field
	Path string `yaml:"path,omitempty"`
}

func (l ListenerKind) isUDS() bool { return l.Path != "" }

// Listener is a single bound endpoint a service accepts downstream connections on.
type Listener struct {
	Source ListenerKind `yaml:"source"`
}

func (l Listener) validate() error {
	if l.Source.isUDS() {
		if l.Source.Addr != "" || l.Source.TLS != nil || l.Source.OfferH2 {
			return fmt.Errorf("listener: uds listener must not set addr/tls/offer_h2")
		}
		return nil
	}
	if l.Source.Addr == "" {
		return fmt.Errorf("listener: tcp listener requires addr")
	}
	if l.Source.OfferH2 && l.Source.TLS == nil {
		return fmt.Errorf("listener %s: offer_h2 requires tls", l.Source.Addr)
	}
	return nil
}

// UpstreamPeer is a single configured proxy destination.
type UpstreamPeer struct {
	Address string `yaml:"address"`
	Scheme  Scheme  `yaml:"scheme"`
	SNI     string `yaml:"sni,omitempty"`
	ALPN    ALPN   `yaml:"alpn"`
}

func (u UpstreamPeer) validate() error {
	if u.Address == "" {
		return fmt.Errorf("upstream peer: address is required")
	}
	switch u.Scheme {
	case SchemePlain, SchemeTLS:
	default:
		return fmt.Errorf("upstream peer %s: unknown scheme %q", u.Address, u.Scheme)
	}
	switch u.ALPN {
	case ALPNH1:
	case ALPNH2, ALPNH2OrH1:
		if u.SNI == "" {
			return fmt.Errorf("upstream peer %s: alpn %q requires sni", u.Address, u.ALPN)
		}
	default:
		return fmt.Errorf("upstream peer %s: unknown alpn %q", u.Address, u.ALPN)
	}
	return nil
}

// UpstreamOptions configures peer selection for a service.
type UpstreamOptions struct {
	Selection SelectionKind `yaml:"selection"`
	Selector  SelectorKind  `yaml:"selector"`
	Health    HealthKind    `yaml:"health"`
	Discovery DiscoveryKind `yaml:"discovery"`
}

func (o UpstreamOptions) validate() error {
	switch o.Selection {
	case SelectionRoundRobin, SelectionRandom, SelectionFNV, SelectionKetama:
	default:
		return fmt.Errorf("upstream options: unknown selection %q", o.Selection)
	}
	switch o.Selector {
	case SelectorNull, SelectorURIPath, SelectorSrcAddrURIPath:
	default:
		return fmt.Errorf("upstream options: unknown selector %q", o.Selector)
	}
	if (o.Selection == SelectionFNV || o.Selection == SelectionKetama) && o.Selector == SelectorNull {
		return fmt.Errorf("upstream options: selection %q requires a non-null selector", o.Selection)
	}
	if o.Health != "" && o.Health != HealthNone {
		return fmt.Errorf("upstream options: unsupported health policy %q", o.Health)
	}
	if o.Discovery != "" && o.Discovery != DiscoveryStatic {
		return fmt.Errorf("upstream options: unsupported discovery policy %q", o.Discovery)
	}
	return nil
}

// FilterSetting is one path-control modifier entry: a mandatory "kind" plus
// kind-specific string keys. It mirrors the original Rust BTreeMap<String,String>
// shape directly so the construction contract (remove "kind", consume remaining
// keys, reject leftovers) ports unchanged.
type FilterSetting map[string]string

// PathControl holds the three ordered modifier lists. Insertion order is
// execution order.
type PathControl struct {
	RequestFilters         []FilterSetting `yaml:"request_filters"`
	UpstreamRequestFilters []FilterSetting `yaml:"upstream_request_filters"`
	UpstreamResponseFilters []FilterSetting `yaml:"upstream_response_filters"`
}

// BucketConfig configures one leaky-token bucket (or the buckets a Multi rule
// manufactures on demand).
type BucketConfig struct {
	MaxTokensPerBucket   int `yaml:"max_tokens_per_bucket"`
	RefillIntervalMillis int `yaml:"refill_interval_millis"`
	RefillQty            int `yaml:"refill_qty"`
	MaxBuckets           int `yaml:"max_buckets,omitempty"`
	Threads              int `yaml:"threads,omitempty"`
}

func (b BucketConfig) validate() error {
	if b.MaxTokensPerBucket <= 0 {
		return fmt.Errorf("bucket config: max_tokens_per_bucket must be positive")
	}
	if b.RefillIntervalMillis <= 0 {
		return fmt.Errorf("bucket config: refill_interval_millis must be positive")
	}
	if b.RefillQty <= 0 {
		return fmt.Errorf("bucket config: refill_qty must be positive")
	}
	if b.RefillQty > b.MaxTokensPerBucket {
		return fmt.Errorf("bucket config: refill_qty (%d) must not exceed max_tokens_per_bucket (%d)", b.RefillQty, b.MaxTokensPerBucket)
	}
	return nil
}

// RateRuleKind is the closed set of rate-limit rule kinds.
type RateRuleKind string

const (
	RuleSingleURIGroup RateRuleKind = "uri-group"
	RuleMultiSourceIP  RateRuleKind = "source-ip"
	RuleMultiURI       RateRuleKind = "uri"
)

// RateRule is a tagged union: Shape is "single" or "multi"; Kind picks the
// concrete key derivation within that shape.
type RateRule struct {
	Shape   string       `yaml:"shape"` // "single" | "multi"
	Kind    RateRuleKind `yaml:"kind"`
	Pattern string       `yaml:"pattern,omitempty"`
	Bucket  BucketConfig `yaml:"bucket"`
}

func (r RateRule) validate() error {
	switch r.Shape {
	case "single":
		if r.Kind != RuleSingleURIGroup {
			return fmt.Errorf("rate rule: single shape only supports kind %q, got %q", RuleSingleURIGroup, r.Kind)
		}
		if r.Pattern == "" {
			return fmt.Errorf("rate rule: uri-group requires a pattern")
		}
	case "multi":
		switch r.Kind {
		case RuleMultiSourceIP:
		case RuleMultiURI:
			if r.Pattern == "" {
				return fmt.Errorf("rate rule: uri requires a pattern")
			}
		default:
			return fmt.Errorf("rate rule: unknown multi kind %q", r.Kind)
		}
	default:
		return fmt.Errorf("rate rule: unknown shape %q", r.Shape)
	}
	return r.Bucket.validate()
}

// RateLimitingConfig is the ordered list of rate-limit rules attached to a service.
type RateLimitingConfig struct {
	TimeoutMs *int       `yaml:"timeout_ms,omitempty"`
	Rules     []RateRule `yaml:"rules"`
}

// Timeout returns the configured rate-limit timeout, or 0 if unset. Retained for
// configuration-surface compatibility; the dispatcher's eager try-now strategy
// does not consult it (see DESIGN.md's "Open Questions resolved").
func (c RateLimitingConfig) Timeout() time.Duration {
	if c.TimeoutMs == nil {
		return 0
	}
	return time.Duration(*c.TimeoutMs) * time.Millisecond
}

// ServiceConfig is the immutable-after-construction record for one named proxy
// service. Exactly mirrors spec.md §3's ServiceConfig (Proxy) entity.
type ServiceConfig struct {
	Name            string              `yaml:"name"`
	Listeners       []Listener          `yaml:"listeners"`
	Upstreams       []UpstreamPeer      `yaml:"upstreams"`
	UpstreamOptions UpstreamOptions     `yaml:"upstream_options"`
	PathControl     PathControl         `yaml:"path_control"`
	RateLimiting    RateLimitingConfig  `yaml:"rate_limiting"`
	IsFileServer    bool                `yaml:"file_server,omitempty"`
	FileServerRoot  string              `yaml:"file_server_root,omitempty"`
}

// Validate enforces every invariant spec.md §3 lists for a ServiceConfig. The
// proxy core must never be constructed from an unvalidated record.
func (s *ServiceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("service: name is required")
	}
	if len(s.Listeners) == 0 {
		return fmt.Errorf("service %s: at least one listener is required", s.Name)
	}
	for i, l := range s.Listeners {
		if err := l.validate(); err != nil {
			return fmt.Errorf("service %s: listener[%d]: %w", s.Name, i, err)
		}
	}
	if s.IsFileServer {
		if s.FileServerRoot == "" {
			return fmt.Errorf("service %s: file_server requires file_server_root", s.Name)
		}
		return nil
	}
	if len(s.Upstreams) == 0 {
		return fmt.Errorf("service %s: at least one upstream peer is required", s.Name)
	}
	for i, u := range s.Upstreams {
		if err := u.validate(); err != nil {
			return fmt.Errorf("service %s: upstream[%d]: %w", s.Name, i, err)
		}
	}
	if err := s.UpstreamOptions.validate(); err != nil {
		return fmt.Errorf("service %s: %w", s.Name, err)
	}
	for i, r := range s.RateLimiting.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("service %s: rate_limiting.rules[%d]: %w", s.Name, i, err)
		}
	}
	return nil
}

// AuditConfig names an optional external sink that decisions (rate-limit
// declines, filter blocks) are mirrored to on a best-effort basis. A zero
// value means no sink is attached.
type AuditConfig struct {
	RedisAddr  string `yaml:"redis_addr,omitempty"`
	QueueDepth int    `yaml:"queue_depth,omitempty"`
	ListCap    int    `yaml:"list_cap,omitempty"`
}

// Enabled reports whether an external sink was configured.
func (a AuditConfig) Enabled() bool { return a.RedisAddr != "" }

// Config is the top-level record: process-wide system options plus every
// configured service.
type Config struct {
	ThreadsPerService int             `yaml:"threads_per_service"`
	Audit             AuditConfig     `yaml:"audit,omitempty"`
	Services          []ServiceConfig `yaml:"services"`
}

// Validate validates every service and rejects duplicate service names.
func (c *Config) Validate() error {
	if c.ThreadsPerService <= 0 {
		c.ThreadsPerService = 1
	}
	seen := make(map[string]struct{}, len(c.Services))
	for i := range c.Services {
		svc := &c.Services[i]
		if err := svc.Validate(); err != nil {
			return err
		}
		if _, dup := seen[svc.Name]; dup {
			return fmt.Errorf("duplicate service name %q", svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	return nil
}
