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
	"net/http"

	"weir/internal/config"
)

// Selector derives the key bytes a hash-based balancer selects on. The
// returned slice may alias ctx.SelectorBuf; callers must not retain it past
// the current request.
type Selector func(ctx *RequestContext, r *http.Request) []byte

// NullSelector returns no key. Valid only with RoundRobin/Random selection.
func NullSelector(ctx *RequestContext, r *http.Request) []byte {
	return nil
}

// URIPathSelector keys on the request path alone.
func URIPathSelector(ctx *RequestContext, r *http.Request) []byte {
	return []byte(r.URL.Path)
}

// SrcAddrURIPathSelector keys on the downstream client address and the
// request path together, formatted into the context's reusable buffer.
func SrcAddrURIPathSelector(ctx *RequestContext, r *http.Request) []byte {
	addr := "<none>"
	if ctx.ClientIP != nil {
		addr = ctx.ClientIP.String()
	}
	ctx.SelectorBuf = ctx.SelectorBuf[:0]
	ctx.SelectorBuf = append(ctx.SelectorBuf, fmt.Sprintf("%s:%s", addr, r.URL.Path)...)
	return ctx.SelectorBuf
}

// BuildSelector returns the Selector named by kind.
func BuildSelector(kind config.SelectorKind) (Selector, error) {
	switch kind {
	case config.SelectorNull:
		return NullSelector, nil
	case config.SelectorURIPath:
		return URIPathSelector, nil
	case config.SelectorSrcAddrURIPath:
		return SrcAddrURIPathSelector, nil
	default:
		return nil, fmt.Errorf("proxy: unknown selector kind %q", kind)
	}
}
