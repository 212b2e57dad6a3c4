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

package balancer

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"sort"
)

// DefaultReplicas is the number of virtual ring points placed per backend.
// Matches the point density libmemcached-style Ketama implementations use to
// keep key redistribution small when the backend set changes.
const DefaultReplicas = 160

type ketamaPoint struct {
	hash    uint32
	backend int // index into Ketama.backends
}

// Ketama is a consistent-hashing ring built once over a static backend set
// and never mutated afterward, so lookups need no locking.
type Ketama struct {
	backends []Backend
	points   []ketamaPoint
}

// NewKetama builds the ring. replicas virtual points are placed per backend,
// each at the SHA-1 digest of "<address>-<replica index>".
func NewKetama(backends []Backend, replicas int) *Ketama {
	k := &Ketama{backends: backends}
	if len(backends) == 0 {
		return k
	}
	k.points = make([]ketamaPoint, 0, len(backends)*replicas)
	for bi, b := range backends {
		for r := 0; r < replicas; r++ {
			digest := sha1.Sum([]byte(fmt.Sprintf("%s-%d", b.Address, r)))
			k.points = append(k.points, ketamaPoint{
				hash:    binary.BigEndian.Uint32(digest[0:4]),
				backend: bi,
			})
		}
	}
	sort.Slice(k.points, func(i, j int) bool { return k.points[i].hash < k.points[j].hash })
	return k
}

// Select walks the ring clockwise from the key's hash and returns the first
// point found. Ties land on ring order (the point that sorts first at equal
// hash). budget is accepted for interface symmetry with health-aware
// balancers; every backend here is always eligible so at most one probe is
// ever needed.
func (k *Ketama) Select(key []byte, budget uint16) (Backend, bool) {
	if len(k.backends) == 0 {
		return Backend{}, false
	}
	digest := sha1.Sum(key)
	h := binary.BigEndian.Uint32(digest[0:4])
	i := sort.Search(len(k.points), func(i int) bool { return k.points[i].hash >= h })
	if i == len(k.points) {
		i = 0
	}
	return k.backends[k.points[i].backend], true
}
