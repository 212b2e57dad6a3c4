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
	"testing"

	"github.com/stretchr/testify/require"
	"weir/internal/config"
)

func threeBackends() []Backend {
	return []Backend{
		{Address: "10.0.0.1:9000", Peer: config.UpstreamPeer{Address: "10.0.0.1:9000"}},
		{Address: "10.0.0.2:9000", Peer: config.UpstreamPeer{Address: "10.0.0.2:9000"}},
		{Address: "10.0.0.3:9000", Peer: config.UpstreamPeer{Address: "10.0.0.3:9000"}},
	}
}

func TestRoundRobin_AdvancesMonotonically(t *testing.T) {
	rr := NewRoundRobin(threeBackends())
	var seen []string
	for i := 0; i < 6; i++ {
		b, ok := rr.Select(nil, 0)
		require.True(t, ok)
		seen = append(seen, b.Address)
	}
	require.Equal(t, []string{
		"10.0.0.1:9000", "10.0.0.2:9000", "10.0.0.3:9000",
		"10.0.0.1:9000", "10.0.0.2:9000", "10.0.0.3:9000",
	}, seen)
}

func TestRoundRobin_EmptyBackendSet(t *testing.T) {
	rr := NewRoundRobin(nil)
	_, ok := rr.Select(nil, 0)
	require.False(t, ok)
}

func TestFNV_DeterministicForFixedKey(t *testing.T) {
	f := NewFNV(threeBackends())
	key := []byte("/user/42")
	first, ok := f.Select(key, 0)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		next, ok := f.Select(key, 0)
		require.True(t, ok)
		require.Equal(t, first.Address, next.Address)
	}
}

func TestFNV_DistributesAcrossDistinctKeys(t *testing.T) {
	f := NewFNV(threeBackends())
	choices := map[string]bool{}
	for _, key := range []string{"/a", "/b", "/c", "/d", "/e", "/f"} {
		b, ok := f.Select([]byte(key), 0)
		require.True(t, ok)
		choices[b.Address] = true
	}
	require.Greater(t, len(choices), 1)
}

func TestKetama_StableForFixedKey(t *testing.T) {
	k := NewKetama(threeBackends(), DefaultReplicas)
	key := []byte("/user/42")
	first, ok := k.Select(key, 0)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		next, ok := k.Select(key, 0)
		require.True(t, ok)
		require.Equal(t, first.Address, next.Address)
	}
}

func TestKetama_EmptyBackendSet(t *testing.T) {
	k := NewKetama(nil, DefaultReplicas)
	_, ok := k.Select([]byte("/x"), 0)
	require.False(t, ok)
}

func TestRandom_AlwaysReturnsConfiguredBackend(t *testing.T) {
	backends := threeBackends()
	valid := map[string]bool{}
	for _, b := range backends {
		valid[b.Address] = true
	}
	r := NewRandom(backends)
	for i := 0; i < 20; i++ {
		b, ok := r.Select(nil, 0)
		require.True(t, ok)
		require.True(t, valid[b.Address])
	}
}

func TestBuild_UnknownSelectionErrors(t *testing.T) {
	_, err := Build(config.SelectionKind("bogus"), threeBackends())
	require.Error(t, err)
}

func TestBuild_ConstructsEachStrategy(t *testing.T) {
	backends := threeBackends()
	for _, sel := range []config.SelectionKind{
		config.SelectionRoundRobin, config.SelectionRandom, config.SelectionFNV, config.SelectionKetama,
	} {
		s, err := Build(sel, backends)
		require.NoError(t, err)
		_, ok := s.Select([]byte("/k"), 0)
		require.True(t, ok)
	}
}
