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

// Package proxy implements the per-service phase dispatcher: the ordered
// request_filter / upstream_peer / upstream_request_filter /
// upstream_response_filter pipeline, its pluggable modifiers, and the
// selector functions that feed the load balancer.
package proxy

import (
	"net"
	"net/netip"

	"weir/internal/config"
)

// RequestContext carries per-request scratch state across the phases of one
// dispatch. SelectorBuf is reused by selectors that need to format a key
// (src_addr_uri_path) instead of borrowing request bytes directly, to
// avoid an allocation on every request.
type RequestContext struct {
	SelectorBuf []byte
	ClientIP    net.IP
	// ClientAddr is the same client address as ClientIP, parsed as a
	// netip.Addr instead. Unlike net.IP, it keeps a plain IPv4 address
	// distinct from its IPv4-mapped IPv6 form, which the rate limiter's
	// source-ip rule keys on.
	ClientAddr netip.Addr
	// IsUDS is true when the inbound connection arrived over a Unix domain
	// socket listener, which has no IP socket to report. Filters that key on
	// ClientIP use this to tell "no IP socket, by design" apart from
	// "address lookup failed".
	IsUDS bool
	// DeclinedRuleKind is set by RequestFilterPhase when a rate-limit rule
	// rejects the request, naming which rule kind declined it for metrics.
	DeclinedRuleKind config.RateRuleKind
}

func NewRequestContext() *RequestContext {
	return &RequestContext{SelectorBuf: make([]byte, 0, 64)}
}
