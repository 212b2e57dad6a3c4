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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBucket_GrantsUpToMaxThenDeclines(t *testing.T) {
	b := NewBucket(3, 1, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		require.Equal(t, Approved, b.TryAcquire())
	}
	require.Equal(t, Declined, b.TryAcquire())
}

func TestBucket_RefillsAfterInterval(t *testing.T) {
	b := NewBucket(3, 1, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		b.TryAcquire()
	}
	require.Equal(t, Declined, b.TryAcquire())

	time.Sleep(35 * time.Millisecond)
	require.Equal(t, Approved, b.TryAcquire())
}

func TestBucket_RefillNeverExceedsMax(t *testing.T) {
	b := NewBucket(3, 5, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	approved := 0
	for i := 0; i < 10; i++ {
		if b.TryAcquire() == Approved {
			approved++
		}
	}
	require.Equal(t, 3, approved)
}
