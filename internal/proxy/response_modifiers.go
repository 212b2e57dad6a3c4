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

// ResponseMutator runs during the upstream_response_filter phase, mutating
// the upstream's response headers in place before release to the client.
type ResponseMutator interface {
	UpstreamResponseFilter(ctx *RequestContext, resp *http.Response) error
}

// RemoveHeaderKeyRegexResponse deletes every response header whose key
// matches pattern, in either its canonical form or lower case.
type RemoveHeaderKeyRegexResponse struct {
	pattern *regexp.Regexp
}

func NewRemoveHeaderKeyRegexResponse(settings config.FilterSetting) (*RemoveHeaderKeyRegexResponse, error) {
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
	return &RemoveHeaderKeyRegexResponse{pattern: re}, nil
}

func (m *RemoveHeaderKeyRegexResponse) UpstreamResponseFilter(ctx *RequestContext, resp *http.Response) error {
	for key := range resp.Header {
		if m.pattern.MatchString(key) || m.pattern.MatchString(strings.ToLower(key)) {
			resp.Header.Del(key)
		}
	}
	return nil
}

// UpsertHeaderResponse replaces (or adds) one response header key/value pair.
type UpsertHeaderResponse struct {
	key   string
	value string
}

func NewUpsertHeaderResponse(settings config.FilterSetting) (*UpsertHeaderResponse, error) {
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
	return &UpsertHeaderResponse{key: key, value: value}, nil
}

func (m *UpsertHeaderResponse) UpstreamResponseFilter(ctx *RequestContext, resp *http.Response) error {
	resp.Header.Set(m.key, m.value)
	return nil
}

// BuildResponseMutator constructs the upstream_response_filter modifier
// named by kind.
func BuildResponseMutator(kind string, settings config.FilterSetting) (ResponseMutator, error) {
	switch kind {
	case "remove-header-key-regex":
		return NewRemoveHeaderKeyRegexResponse(settings)
	case "upsert-header":
		return NewUpsertHeaderResponse(settings)
	default:
		return nil, &UnknownKindError{Phase: "upstream_response_filter", Kind: kind}
	}
}
