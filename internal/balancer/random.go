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

import "math/rand/v2"

// Random picks a uniformly random backend on every call. The key is ignored.
type Random struct {
	backends []Backend
}

func NewRandom(backends []Backend) *Random {
	return &Random{backends: backends}
}

func (r *Random) Select(key []byte, budget uint16) (Backend, bool) {
	if len(r.backends) == 0 {
		return Backend{}, false
	}
	return r.backends[rand.IntN(len(r.backends))], true
}
