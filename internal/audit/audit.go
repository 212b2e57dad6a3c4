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

// Package audit records rate-limit and filter decisions for offline
// observability. It is strictly best-effort and non-blocking: a full
// buffer drops the event rather than stall the request path, and nothing
// here feeds back into a rate-limit decision itself.
package audit

import "time"

// Decision is one recorded request-filter outcome.
type Decision struct {
	Service   string
	Rule      string // e.g. "block-cidr-range", "rate-limit:source-ip"
	Outcome   string // "approved" | "declined"
	Key       string
	At        time.Time
}

// Sink consumes Decisions. Record must never block the caller for long;
// implementations that need to do I/O should queue internally.
type Sink interface {
	Record(d Decision)
	Close()
}

// NoopSink discards every decision. It is the default when no audit
// backend is configured.
type NoopSink struct{}

func (NoopSink) Record(Decision) {}
func (NoopSink) Close()          {}
