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
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// redisPusher abstracts the minimal surface RedisSink needs from a Redis
// client, so tests can substitute a fake without a live server.
type redisPusher interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// goRedisPusher wraps github.com/redis/go-redis/v9.
type goRedisPusher struct{ c *redis.Client }

func (g *goRedisPusher) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.c.Eval(ctx, script, keys, args...).Result()
}

// auditPushScript appends one decision to a capped Redis list in one round
// trip: RPUSH the encoded entry, then LTRIM to the configured cap. Using a
// single script keeps the append+trim atomic without a transaction.
const auditPushScript = `
redis.call('RPUSH', KEYS[1], ARGV[1])
redis.call('LTRIM', KEYS[1], -tonumber(ARGV[2]), -1)
return 1
`

// RedisSink appends each Decision to a capped list in Redis, one key per
// service. Record enqueues onto a bounded channel and returns immediately;
// a background goroutine drains it so a slow or unreachable Redis server
// never adds latency to the request path. When the queue is full, the
// decision is dropped rather than block.
type RedisSink struct {
	client   redisPusher
	listCap  int
	queue    chan Decision
	stopOnce sync.Once
	done     chan struct{}
}

// NewRedisSink connects to addr and starts the background drain loop.
// queueDepth bounds how many decisions may be buffered before new ones are
// dropped; listCap bounds how many decisions Redis retains per service.
func NewRedisSink(addr string, queueDepth, listCap int) *RedisSink {
	client := &goRedisPusher{c: redis.NewClient(&redis.Options{Addr: addr})}
	return newRedisSink(client, queueDepth, listCap)
}

func newRedisSink(client redisPusher, queueDepth, listCap int) *RedisSink {
	if queueDepth <= 0 {
		queueDepth = 1024
	}
	if listCap <= 0 {
		listCap = 10_000
	}
	s := &RedisSink{
		client:  client,
		listCap: listCap,
		queue:   make(chan Decision, queueDepth),
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *RedisSink) Record(d Decision) {
	select {
	case s.queue <- d:
	default:
		// Queue full: drop. Audit is best-effort by design.
	}
}

func (s *RedisSink) Close() {
	s.stopOnce.Do(func() {
		close(s.queue)
		<-s.done
	})
}

func (s *RedisSink) drain() {
	defer close(s.done)
	for d := range s.queue {
		key := "audit:" + d.Service
		encoded := fmt.Sprintf("%d|%s|%s|%s", d.At.UnixNano(), d.Rule, d.Outcome, d.Key)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, _ = s.client.Eval(ctx, auditPushScript, []string{key}, encoded, s.listCap)
		cancel()
	}
}
