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

import "net/netip"

// RequestKey is a tagged key for a Multi rate limiter bucket: either a
// source IP address or a URI string. Two keys of different kinds never
// collide even if their string forms would otherwise match, since the tag
// is folded into the cache key.
type RequestKey struct {
	kind string // "source4" | "source4in6" | "source6" | "uri"
	val  string
}

// SourceKey tags the address's family into the key. netip.Addr keeps the
// distinction net.IP erases: a plain IPv4 address (Is4) and its IPv4-mapped
// IPv6 form (Is4In6, e.g. "::ffff:1.2.3.4") both print the same dotted
// decimal text, but must land on different buckets since they arrived over
// different-family sockets.
func SourceKey(addr netip.Addr) RequestKey {
	kind := "source6"
	switch {
	case addr.Is4():
		kind = "source4"
	case addr.Is4In6():
		kind = "source4in6"
	}
	return RequestKey{kind: kind, val: addr.String()}
}

func URIKey(uri string) RequestKey {
	return RequestKey{kind: "uri", val: uri}
}

// CacheKey returns the string used to address the bucket cache. The kind
// tag is a prefix so "source4:1.2.3.4" and "uri:1.2.3.4" never collide.
func (k RequestKey) CacheKey() string {
	return k.kind + ":" + k.val
}
