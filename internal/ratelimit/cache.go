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
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// BucketCache is a bounded, sharded store of Buckets keyed by an opaque
// string. There is no background eviction worker: a shard evicts its own
// least-recently-touched entries synchronously, the moment an insert pushes
// it past its share of the configured capacity. A key that stops being used
// simply never gets touched again and falls out the next time its shard
// needs room for a new one.
//
// Sharding spreads the sync.Map fast-path contention seen under concurrent
// access across several independent maps, each owning a slice of the
// keyspace via rendezvous hashing so a given key always lands on the same
// shard without a mutable routing table.
type BucketCache struct {
	shards   []*cacheShard
	shardIdx map[string]int
	rendez   *rendezvous.Rendezvous
	capacity int
}

func shardName(i int) string { return "shard-" + strconv.Itoa(i) }

type cacheShard struct {
	evictMu sync.Mutex // serializes eviction scans; entries itself needs none
	entries sync.Map   // string -> *cacheEntry
	size    atomic.Int64
}

type cacheEntry struct {
	bucket       *Bucket
	lastAccessed atomic.Int64 // UnixNano
}

const shardCount = 16

// NewBucketCache creates a cache whose capacity is split evenly across its
// shardCount shards: each shard holds at most capacity/shardCount buckets
// (integer division, but never fewer than one). The total held is therefore
// at most shardCount*max(capacity/shardCount, 1), which is more than
// capacity when capacity is below shardCount and less than capacity when
// capacity is not a multiple of shardCount. A shard evicts when it is full
// even if other shards have room.
func NewBucketCache(capacity int) *BucketCache {
	shardNames := make([]string, shardCount)
	shards := make([]*cacheShard, shardCount)
	for i := range shards {
		shards[i] = &cacheShard{}
		shardNames[i] = shardName(i)
	}
	idx := make(map[string]int, shardCount)
	for i, name := range shardNames {
		idx[name] = i
	}
	return &BucketCache{
		shards:   shards,
		shardIdx: idx,
		rendez:   rendezvous.New(shardNames, xxhash.Sum64String),
		capacity: capacity,
	}
}

func (c *BucketCache) shardFor(key string) *cacheShard {
	name := c.rendez.Lookup(key)
	i, ok := c.shardIdx[name]
	if !ok {
		panic(fmt.Sprintf("ratelimit: rendezvous returned unknown shard %q", name))
	}
	return c.shards[i]
}

// GetOrCreate returns the bucket for key, constructing it via newBucket on
// first access. Fast path avoids allocating newBucket's result when the key
// is already present, mirroring the Load-before-LoadOrStore pattern used
// elsewhere in this codebase for hot-path key lookups. An insert that pushes
// the owning shard over its capacity share evicts that shard's oldest
// entries before returning.
func (c *BucketCache) GetOrCreate(key string, newBucket func() *Bucket) *Bucket {
	shard := c.shardFor(key)
	now := time.Now().UnixNano()

	if v, ok := shard.entries.Load(key); ok {
		e := v.(*cacheEntry)
		e.lastAccessed.Store(now)
		return e.bucket
	}

	e := &cacheEntry{bucket: newBucket()}
	e.lastAccessed.Store(now)
	actual, loaded := shard.entries.LoadOrStore(key, e)
	got := actual.(*cacheEntry)
	if !loaded {
		shard.size.Add(1)
		c.evictOverflow(shard)
	} else {
		got.lastAccessed.Store(now)
	}
	return got.bucket
}

func (c *BucketCache) perShardCap() int {
	limit := c.capacity / len(c.shards)
	if limit < 1 {
		limit = 1
	}
	return limit
}

// evictOverflow removes shard's oldest-accessed entries until it fits its
// capacity share again. Called synchronously from the insert that pushed it
// over, never from a timer; a shard under its cap returns immediately
// without taking evictMu.
func (c *BucketCache) evictOverflow(shard *cacheShard) {
	limit := c.perShardCap()
	if int(shard.size.Load()) <= limit {
		return
	}

	shard.evictMu.Lock()
	defer shard.evictMu.Unlock()

	type aged struct {
		key  string
		last int64
	}
	var live []aged
	shard.entries.Range(func(k, v any) bool {
		e := v.(*cacheEntry)
		live = append(live, aged{key: k.(string), last: e.lastAccessed.Load()})
		return true
	})
	if len(live) <= limit {
		return
	}
	sort.Slice(live, func(i, j int) bool { return live[i].last < live[j].last })
	overflow := len(live) - limit
	for i := 0; i < overflow; i++ {
		if _, ok := shard.entries.LoadAndDelete(live[i].key); ok {
			shard.size.Add(-1)
		}
	}
}

// Len returns the approximate number of live buckets across all shards.
func (c *BucketCache) Len() int {
	var total int64
	for _, s := range c.shards {
		total += s.size.Load()
	}
	return int(total)
}
