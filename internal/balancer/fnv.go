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

import "hash/fnv"

// FNV hashes the selector key with FNV-1a and reduces modulo the backend
// count. Identical key bytes always select the same backend for a fixed
// backend set.
type FNV struct {
	backends []Backend
}

func NewFNV(backends []Backend) *FNV {
	return &FNV{backends: backends}
}

func (f *FNV) Select(key []byte, budget uint16) (Backend, bool) {
	if len(f.backends) == 0 {
		return Backend{}, false
	}
	h := fnv.New64a()
	h.Write(key)
	return f.backends[h.Sum64()%uint64(len(f.backends))], true
}
