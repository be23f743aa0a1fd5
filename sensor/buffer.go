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
	"sort"

	"github.com/kneesync/core/quat"
)

// Buffer is a timestamp-ordered sequence of Sample for one sensor. It
// is bounded to Capacity samples in live mode (oldest discarded on
// overflow); Capacity <= 0 means unbounded, for offline/batch use.
//
// Buffer is not safe for concurrent use; callers own a lock per sensor
// if the push path and the scheduler tick run on different goroutines.
type Buffer struct {
	capacity int
	samples  []Sample
}

// NewBuffer returns an empty Buffer with the given capacity. capacity
// <= 0 means unbounded.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{capacity: capacity}
}

// Push appends a sample, preserving timestamp order. Samples that
// arrive in order (ts >= newest timestamp) are appended in O(1); a
// sample that arrives out of order is inserted via binary search,
// O(log n) to locate plus O(n) to shift, the rare fallback path for a
// straggling sample. Push reports whether the sample was out of order
// and whether it caused an overflow discard, so callers can maintain
// their own out-of-order and overflow counters.
func (b *Buffer) Push(s Sample) (outOfOrder, overflowed bool) {
	n := len(b.samples)
	if n == 0 || s.Timestamp >= b.samples[n-1].Timestamp {
		b.samples = append(b.samples, s)
	} else {
		outOfOrder = true
		i := sort.Search(n, func(i int) bool { return b.samples[i].Timestamp >= s.Timestamp })
		b.samples = append(b.samples, Sample{})
		copy(b.samples[i+1:], b.samples[i:])
		b.samples[i] = s
	}

	if b.capacity > 0 && len(b.samples) > b.capacity {
		overflowed = true
		b.samples = b.samples[len(b.samples)-b.capacity:]
	}
	return outOfOrder, overflowed
}

// ClosestIndex returns the index of the sample whose timestamp is
// closest to target, or -1 if the buffer is empty. Ties (equidistant
// neighbors) resolve to the earlier index.
func (b *Buffer) ClosestIndex(target int64) int {
	n := len(b.samples)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool { return b.samples[i].Timestamp >= target })
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	before, after := b.samples[i-1], b.samples[i]
	if target-before.Timestamp <= after.Timestamp-target {
		return i - 1
	}
	return i
}

// Get returns the sample at index i and whether i was in range.
func (b *Buffer) Get(i int) (Sample, bool) {
	if i < 0 || i >= len(b.samples) {
		return Sample{}, false
	}
	return b.samples[i], true
}

// TimestampAt returns the timestamp at index i, or 0 if out of range.
func (b *Buffer) TimestampAt(i int) int64 {
	s, ok := b.Get(i)
	if !ok {
		return 0
	}
	return s.Timestamp
}

// QuaternionAt returns the quaternion at index i and whether i was in
// range.
func (b *Buffer) QuaternionAt(i int) (quat.Quaternion, bool) {
	s, ok := b.Get(i)
	return s.Quaternion, ok
}

// DiscardUpTo removes the first n elements (n is clamped to Size()).
func (b *Buffer) DiscardUpTo(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.samples) {
		b.samples = b.samples[:0]
		return
	}
	b.samples = b.samples[n:]
}

// TrimBefore discards all samples with timestamp strictly before ts.
func (b *Buffer) TrimBefore(ts int64) {
	i := sort.Search(len(b.samples), func(i int) bool { return b.samples[i].Timestamp >= ts })
	b.DiscardUpTo(i)
}

// OldestTS returns the oldest timestamp, or (0, false) if empty.
func (b *Buffer) OldestTS() (int64, bool) {
	if len(b.samples) == 0 {
		return 0, false
	}
	return b.samples[0].Timestamp, true
}

// NewestTS returns the newest timestamp, or (0, false) if empty.
func (b *Buffer) NewestTS() (int64, bool) {
	n := len(b.samples)
	if n == 0 {
		return 0, false
	}
	return b.samples[n-1].Timestamp, true
}

// Size returns the number of samples currently buffered.
func (b *Buffer) Size() int {
	return len(b.samples)
}

// IsEmpty reports whether the buffer holds no samples.
func (b *Buffer) IsEmpty() bool {
	return len(b.samples) == 0
}

// Clear empties the buffer, retaining its configured capacity.
func (b *Buffer) Clear() {
	b.samples = b.samples[:0]
}
