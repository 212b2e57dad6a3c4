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
	"regexp"
	"time"

	"weir/internal/config"
)

// Rater is anything that can decide, for one request, whether a token is
// available right now. sourceIP is the zero netip.Addr when the client has
// no IP address (for example a UDS client). A Single rater never reads it;
// a uri Multi rater never reads it either.
type Rater interface {
	// TryAcquire returns outcome Approved when the request is allowed
	// through, and matched=false when this rule's key pattern did not apply to the
	// request at all (in which case the rule is simply skipped, not
	// declined).
	TryAcquire(sourceIP netip.Addr, uriPath string) (outcome Outcome, matched bool)

	// Kind reports the configured rule kind this rater enforces, used to
	// label rate-limit metrics.
	Kind() config.RateRuleKind
}

// Single serves every matching request from one shared bucket: the original
// "any-matching-uri" shape, used for uri-group rules.
type Single struct {
	pattern *regexp.Regexp
	bucket  *Bucket
}

func NewSingle(pattern string, bucket config.BucketConfig) (*Single, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Single{
		pattern: re,
		bucket:  NewBucket(int64(bucket.MaxTokensPerBucket), int64(bucket.RefillQty), time.Duration(bucket.RefillIntervalMillis)*time.Millisecond),
	}, nil
}

func (s *Single) TryAcquire(sourceIP netip.Addr, uriPath string) (Outcome, bool) {
	if !s.pattern.MatchString(uriPath) {
		return Declined, false
	}
	return s.bucket.TryAcquire(), true
}

// Kind always reports uri-group: a Single rater only ever backs that rule
// kind (config.RateRule.validate rejects any other shape/kind pairing).
func (s *Single) Kind() config.RateRuleKind { return config.RuleSingleURIGroup }

// Multi keys a bounded cache of buckets, one per distinct RequestKey seen.
// Two kinds are supported: source-ip (every client address gets its own
// bucket) and uri (every distinct path matching pattern gets its own
// bucket).
type Multi struct {
	kind    config.RateRuleKind
	pattern *regexp.Regexp // nil for source-ip
	cache   *BucketCache
	cfg     config.BucketConfig
}

func NewMulti(kind config.RateRuleKind, pattern string, bucket config.BucketConfig) (*Multi, error) {
	m := &Multi{kind: kind, cfg: bucket}
	if kind == config.RuleMultiURI {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		m.pattern = re
	}
	m.cache = NewBucketCache(bucket.MaxBuckets)
	return m, nil
}

func (m *Multi) TryAcquire(sourceIP netip.Addr, uriPath string) (Outcome, bool) {
	var key RequestKey
	switch m.kind {
	case config.RuleMultiSourceIP:
		if !sourceIP.IsValid() {
			return Declined, false
		}
		key = SourceKey(sourceIP)
	case config.RuleMultiURI:
		if !m.pattern.MatchString(uriPath) {
			return Declined, false
		}
		key = URIKey(uriPath)
	default:
		return Declined, false
	}

	bucket := m.cache.GetOrCreate(key.CacheKey(), func() *Bucket {
		return NewBucket(
			int64(m.cfg.MaxTokensPerBucket),
			int64(m.cfg.RefillQty),
			time.Duration(m.cfg.RefillIntervalMillis)*time.Millisecond,
		)
	})
	return bucket.TryAcquire(), true
}

// Kind reports the configured rule kind (source-ip or uri) this rater
// enforces.
func (m *Multi) Kind() config.RateRuleKind { return m.kind }

// CacheSize reports the live bucket count backing this rule, for the
// bucket-cache-size gauge.
func (m *Multi) CacheSize() int { return m.cache.Len() }

// Stop is a no-op: BucketCache has no background worker to release. Kept so
// Gate.Stop and every existing call site (cmd/weir/main.go, tests) can keep
// calling it without caring whether a given rater owns a goroutine.
func (m *Multi) Stop() {}

// Build constructs the Rater described by rule.
func Build(rule config.RateRule) (Rater, error) {
	switch rule.Shape {
	case "single":
		return NewSingle(rule.Pattern, rule.Bucket)
	case "multi":
		return NewMulti(rule.Kind, rule.Pattern, rule.Bucket)
	default:
		return nil, &UnknownShapeError{Shape: rule.Shape}
	}
}

// UnknownShapeError reports a rate rule shape Build does not recognize.
// config.RateRule.validate should already exclude this; it is a defensive
// backstop at construction time.
type UnknownShapeError struct {
	Shape string
}

func (e *UnknownShapeError) Error() string {
	return "ratelimit: unknown rule shape " + e.Shape
}
