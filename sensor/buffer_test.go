/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sensor

import (
	"testing"

	"github.com/kneesync/core/quat"
	"github.com/stretchr/testify/require"
)

func sampleAt(ts int64) Sample {
	return Sample{Timestamp: ts, Quaternion: quat.Identity}
}

// TestClosestIndexRoundTrip checks that after pushing N
// timestamp-ordered samples, ClosestIndex(ts_k) == k for every k.
func TestClosestIndexRoundTrip(t *testing.T) {
	b := NewBuffer(0)
	tss := []int64{0, 11, 19, 31, 52, 100}
	for _, ts := range tss {
		b.Push(sampleAt(ts))
	}
	for k, ts := range tss {
		require.Equal(t, k, b.ClosestIndex(ts))
	}
}

func TestClosestIndexEmpty(t *testing.T) {
	b := NewBuffer(0)
	require.Equal(t, -1, b.ClosestIndex(42))
}

func TestClosestIndexNearest(t *testing.T) {
	b := NewBuffer(0)
	b.Push(sampleAt(0))
	b.Push(sampleAt(10))
	b.Push(sampleAt(20))
	require.Equal(t, 1, b.ClosestIndex(9))
	require.Equal(t, 1, b.ClosestIndex(11))
	require.Equal(t, 0, b.ClosestIndex(-100))
	require.Equal(t, 2, b.ClosestIndex(1000))
}

// TestPushOutOfOrder checks that a late-arriving sample is inserted at
// the correct slot and NewestTS is unaffected.
func TestPushOutOfOrder(t *testing.T) {
	b := NewBuffer(0)
	ooo, _ := b.Push(sampleAt(10))
	require.False(t, ooo)
	ooo, _ = b.Push(sampleAt(5))
	require.True(t, ooo)

	require.Equal(t, 0, b.ClosestIndex(5))
	newest, ok := b.NewestTS()
	require.True(t, ok)
	require.Equal(t, int64(10), newest)
}

// TestBufferBoundedness checks that in live mode, size() never
// exceeds capacity regardless of push order.
func TestBufferBoundedness(t *testing.T) {
	b := NewBuffer(3)
	for i := int64(0); i < 10; i++ {
		_, overflowed := b.Push(sampleAt(i))
		require.LessOrEqual(t, b.Size(), 3)
		if i >= 3 {
			require.True(t, overflowed)
		}
	}
	require.Equal(t, 3, b.Size())
	newest, _ := b.NewestTS()
	require.Equal(t, int64(9), newest)
}

func TestBufferUnbounded(t *testing.T) {
	b := NewBuffer(0)
	for i := int64(0); i < 500; i++ {
		b.Push(sampleAt(i))
	}
	require.Equal(t, 500, b.Size())
}

func TestDuplicateTimestampsPermitted(t *testing.T) {
	b := NewBuffer(0)
	b.Push(sampleAt(5))
	ooo, _ := b.Push(sampleAt(5))
	require.False(t, ooo, "equal timestamps are not out-of-order")
	require.Equal(t, 2, b.Size())
}

func TestDiscardUpTo(t *testing.T) {
	b := NewBuffer(0)
	for i := int64(0); i < 5; i++ {
		b.Push(sampleAt(i))
	}
	b.DiscardUpTo(2)
	require.Equal(t, 3, b.Size())
	oldest, _ := b.OldestTS()
	require.Equal(t, int64(2), oldest)

	b.DiscardUpTo(1000)
	require.True(t, b.IsEmpty())
}

func TestTrimBefore(t *testing.T) {
	b := NewBuffer(0)
	for _, ts := range []int64{0, 10, 20, 30} {
		b.Push(sampleAt(ts))
	}
	b.TrimBefore(15)
	require.Equal(t, 2, b.Size())
	oldest, _ := b.OldestTS()
	require.Equal(t, int64(20), oldest)
}

func TestOldestNewestEmpty(t *testing.T) {
	b := NewBuffer(0)
	_, ok := b.OldestTS()
	require.False(t, ok)
	_, ok = b.NewestTS()
	require.False(t, ok)
}

func TestClear(t *testing.T) {
	b := NewBuffer(0)
	b.Push(sampleAt(1))
	b.Clear()
	require.True(t, b.IsEmpty())
	require.Equal(t, 0, b.Size())
}

func TestNonDecreasingInvariantAfterOutOfOrderBurst(t *testing.T) {
	b := NewBuffer(0)
	tss := []int64{10, 30, 20, 5, 25, 15}
	for _, ts := range tss {
		b.Push(sampleAt(ts))
	}
	last := int64(-1)
	for i := 0; i < b.Size(); i++ {
		ts := b.TimestampAt(i)
		require.GreaterOrEqual(t, ts, last)
		last = ts
	}
}
