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

package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakePusher) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, keys)
	return int64(1), nil
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRedisSink_RecordsAreDrainedAsynchronously(t *testing.T) {
	fp := &fakePusher{}
	sink := newRedisSink(fp, 16, 100)
	defer sink.Close()

	sink.Record(Decision{Service: "api", Rule: "block-cidr-range", Outcome: "declined", At: time.Now()})
	sink.Record(Decision{Service: "api", Rule: "rate-limit:source-ip", Outcome: "approved", At: time.Now()})

	require.Eventually(t, func() bool { return fp.count() == 2 }, time.Second, time.Millisecond)
}

func TestRedisSink_DropsWhenQueueFull(t *testing.T) {
	fp := &fakePusher{}
	sink := newRedisSink(fp, 1, 100)
	defer sink.Close()

	for i := 0; i < 50; i++ {
		sink.Record(Decision{Service: "api", Rule: "x", Outcome: "approved", At: time.Now()})
	}
	// Must not block or panic; exact delivered count is not guaranteed under drop.
}

func TestNoopSink_DoesNothing(t *testing.T) {
	var s NoopSink
	s.Record(Decision{Service: "api"})
	s.Close()
}
