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

import "sync/atomic"

// RoundRobin advances an atomic counter modulo the backend count. The key is
// ignored; selection across requests on one service is monotonic.
type RoundRobin struct {
	backends []Backend
	next     atomic.Uint64
}

func NewRoundRobin(backends []Backend) *RoundRobin {
	return &RoundRobin{backends: backends}
}

func (r *RoundRobin) Select(key []byte, budget uint16) (Backend, bool) {
	if len(r.backends) == 0 {
		return Backend{}, false
	}
	i := r.next.Add(1) - 1
	return r.backends[i%uint64(len(r.backends))], true
}
