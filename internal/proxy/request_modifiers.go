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
	"net/http"
	"regexp"
	"strings"

	"weir/internal/config"
)

// RequestMutator runs during the upstream_request_filter phase, mutating the
// outgoing request in place before it is forwarded.
type RequestMutator interface {
	UpstreamRequestFilter(ctx *RequestContext, r *http.Request) error
}

// RemoveHeaderKeyRegexRequest deletes every header whose key matches pattern,
// in either its canonical form ("X-Secret-Token") or lower case
// ("x-secret-token").
type RemoveHeaderKeyRegexRequest struct {
	pattern *regexp.Regexp
}

func NewRemoveHeaderKeyRegexRequest(settings config.FilterSetting) (*RemoveHeaderKeyRegexRequest, error) {
	settings = cloneSettings(settings)
	pattern, err := extractVal("pattern", settings)
	if err != nil {
		return nil, err
	}
	if err := ensureEmpty(settings); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RemoveHeaderKeyRegexRequest{pattern: re}, nil
}

func (m *RemoveHeaderKeyRegexRequest) UpstreamRequestFilter(ctx *RequestContext, r *http.Request) error {
	for key := range r.Header {
		if m.pattern.MatchString(key) || m.pattern.MatchString(strings.ToLower(key)) {
			r.Header.Del(key)
		}
	}
	return nil
}

// UpsertHeaderRequest replaces (or adds) one header key/value pair.
type UpsertHeaderRequest struct {
	key   string
	value string
}

func NewUpsertHeaderRequest(settings config.FilterSetting) (*UpsertHeaderRequest, error) {
	settings = cloneSettings(settings)
	key, err := extractVal("key", settings)
	if err != nil {
		return nil, err
	}
	value, err := extractVal("value", settings)
	if err != nil {
		return nil, err
	}
	if err := ensureEmpty(settings); err != nil {
		return nil, err
	}
	return &UpsertHeaderRequest{key: key, value: value}, nil
}

func (m *UpsertHeaderRequest) UpstreamRequestFilter(ctx *RequestContext, r *http.Request) error {
	r.Header.Set(m.key, m.value)
	return nil
}

// PathRewrite replaces every regex match in the request path with rewrite
// text, leaving the path untouched when the pattern does not match.
type PathRewrite struct {
	pattern *regexp.Regexp
	rewrite string
}

func NewPathRewrite(settings config.FilterSetting) (*PathRewrite, error) {
	settings = cloneSettings(settings)
	pattern, err := extractVal("regex", settings)
	if err != nil {
		return nil, err
	}
	rewrite, err := extractVal("rewrite", settings)
	if err != nil {
		return nil, err
	}
	if err := ensureEmpty(settings); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &PathRewrite{pattern: re, rewrite: rewrite}, nil
}

func (m *PathRewrite) UpstreamRequestFilter(ctx *RequestContext, r *http.Request) error {
	if !m.pattern.MatchString(r.URL.Path) {
		return nil
	}
	// The existing query string is untouched; only the path is rewritten.
	r.URL.Path = m.pattern.ReplaceAllString(r.URL.Path, m.rewrite)
	r.URL.RawPath = ""
	return nil
}

// BuildRequestMutator constructs the upstream_request_filter modifier named
// by kind.
func BuildRequestMutator(kind string, settings config.FilterSetting) (RequestMutator, error) {
	switch kind {
	case "remove-header-key-regex":
		return NewRemoveHeaderKeyRegexRequest(settings)
	case "upsert-header":
		return NewUpsertHeaderRequest(settings)
	case "url-rewrite":
		return NewPathRewrite(settings)
	default:
		return nil, &UnknownKindError{Phase: "upstream_request_filter", Kind: kind}
	}
}
