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
	"fmt"
	"net"
	"net/http"
	"strings"

	"weir/internal/config"
)

// RequestFilter runs during the request_filter phase. Handled=true means the
// filter has already written a response and no later phase should run.
type RequestFilter interface {
	RequestFilter(ctx *RequestContext, w http.ResponseWriter, r *http.Request) (handled bool, err error)
}

// CidrRangeFilter blocks (401) any downstream client whose address falls
// inside one of its configured CIDR blocks. UDS clients have no IP socket
// and are let through regardless of configured blocks.
type CidrRangeFilter struct {
	blocks []*net.IPNet
}

// NewCidrRangeFilter builds a filter from a comma-separated "addrs" setting.
func NewCidrRangeFilter(settings config.FilterSetting) (*CidrRangeFilter, error) {
	settings = cloneSettings(settings)
	raw, err := extractVal("addrs", settings)
	if err != nil {
		return nil, err
	}
	if err := ensureEmpty(settings); err != nil {
		return nil, err
	}

	var blocks []*net.IPNet
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		_, ipnet, err := net.ParseCIDR(part)
		if err != nil {
			return nil, fmt.Errorf("proxy: invalid CIDR range %q: %w", part, err)
		}
		blocks = append(blocks, ipnet)
	}
	return &CidrRangeFilter{blocks: blocks}, nil
}

func (f *CidrRangeFilter) RequestFilter(ctx *RequestContext, w http.ResponseWriter, r *http.Request) (bool, error) {
	if ctx.ClientIP == nil {
		if ctx.IsUDS {
			// Not an IP socket by design: the block list cannot apply.
			return false, nil
		}
		// An IP socket was expected but no address could be recovered.
		http.Error(w, "no client address", http.StatusUnauthorized)
		return true, nil
	}
	for _, block := range f.blocks {
		if block.Contains(ctx.ClientIP) {
			http.Error(w, "blocked", http.StatusUnauthorized)
			return true, nil
		}
	}
	return false, nil
}

// BuildRequestFilter constructs the request_filter modifier named by kind.
func BuildRequestFilter(kind string, settings config.FilterSetting) (RequestFilter, error) {
	switch kind {
	case "block-cidr-range":
		return NewCidrRangeFilter(settings)
	default:
		return nil, &UnknownKindError{Phase: "request_filter", Kind: kind}
	}
}

// UnknownKindError reports a modifier kind string construction does not
// recognize. Config construction must fail fast on this, not at request time.
type UnknownKindError struct {
	Phase string
	Kind  string
}

func (e *UnknownKindError) Error() string {
	return "proxy: unknown " + e.Phase + " kind " + e.Kind
}
