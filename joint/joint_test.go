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

package joint

import (
	"testing"

	"github.com/kneesync/core/quat"
	"github.com/kneesync/core/sensor"
	"github.com/stretchr/testify/require"
)

func push(t *testing.T, buf *sensor.Buffer, ts int64, q quat.Quaternion) {
	t.Helper()
	buf.Push(sensor.Sample{Timestamp: ts, Quaternion: q})
}

func TestConsumeOneMatchColdStart(t *testing.T) {
	a := NewAligner(0)
	push(t, a.ThighBuf, 0, quat.Identity)

	thigh, shin := a.ConsumeOneMatch()
	require.True(t, thigh.Active())
	require.False(t, shin.Active())
	require.Nil(t, thigh.Prev)
	require.NotNil(t, thigh.Curr)

	q, cold, ok := thigh.InterpolateAt(0)
	require.True(t, ok)
	require.True(t, cold)
	require.Equal(t, quat.Identity, q)
}

func TestConsumeOneMatchPairsBothSensors(t *testing.T) {
	a := NewAligner(0)
	push(t, a.ThighBuf, 0, quat.Identity)
	push(t, a.ShinBuf, 2, quat.Identity)

	a.ConsumeOneMatch()
	require.False(t, a.FullyPrimed(), "only curr set on first tick, prev still nil")

	push(t, a.ThighBuf, 10, quat.Identity)
	push(t, a.ShinBuf, 11, quat.Identity)
	a.ConsumeOneMatch()
	require.True(t, a.FullyPrimed())
}

func TestConsumeOneMatchOnlyOneSensorAdvances(t *testing.T) {
	a := NewAligner(0)
	push(t, a.ThighBuf, 0, quat.Identity)
	push(t, a.ShinBuf, 0, quat.Identity)
	a.ConsumeOneMatch()
	push(t, a.ThighBuf, 10, quat.Identity)
	a.ConsumeOneMatch()

	thigh, shin := a.ThighState(), a.ShinState()
	require.Equal(t, int64(10), thigh.Curr.Timestamp)
	// shin untouched: still only has the cold-start sample.
	require.Nil(t, shin.Prev)
	require.Equal(t, int64(0), shin.Curr.Timestamp)
}

func TestNewestTSIsMaxOfBothSensors(t *testing.T) {
	a := NewAligner(0)
	_, ok := a.NewestTS()
	require.False(t, ok)

	push(t, a.ThighBuf, 5, quat.Identity)
	push(t, a.ShinBuf, 9, quat.Identity)
	a.ConsumeOneMatch()

	ts, ok := a.NewestTS()
	require.True(t, ok)
	require.Equal(t, int64(9), ts)
}

// TestInterpolateAtNoExtrapolation checks that the interpolated
// timestamp is always clamped within [prev.ts, curr.ts], never
// extrapolated beyond it.
func TestInterpolateAtNoExtrapolation(t *testing.T) {
	a := NewAligner(0)
	push(t, a.ThighBuf, 0, quat.FromAxisAngle(0, 0, 1, 0))
	a.ConsumeOneMatch()
	push(t, a.ThighBuf, 10, quat.FromAxisAngle(0, 0, 1, 90))
	a.ConsumeOneMatch()

	state := a.ThighState()
	for _, at := range []int64{-5, 0, 3, 10, 20} {
		q, _, ok := state.InterpolateAt(at)
		require.True(t, ok)
		require.False(t, q == quat.Quaternion{})
		clamped := at
		if clamped < state.Prev.Timestamp {
			clamped = state.Prev.Timestamp
		}
		if clamped > state.Curr.Timestamp {
			clamped = state.Curr.Timestamp
		}
		require.GreaterOrEqual(t, clamped, state.Prev.Timestamp)
		require.LessOrEqual(t, clamped, state.Curr.Timestamp)
		want, _, _ := state.InterpolateAt(clamped)
		require.Equal(t, want, q, "InterpolateAt(%d) differs from InterpolateAt(%d) at the clamped time", at, clamped)
	}
}

func TestInterpolateAtMidpoint(t *testing.T) {
	a := NewAligner(0)
	push(t, a.ThighBuf, 0, quat.FromAxisAngle(0, 0, 1, 0))
	a.ConsumeOneMatch()
	push(t, a.ThighBuf, 10, quat.FromAxisAngle(0, 0, 1, 90))
	a.ConsumeOneMatch()

	state := a.ThighState()
	q, cold, ok := state.InterpolateAt(5)
	require.True(t, ok)
	require.False(t, cold)
	want := quat.FromAxisAngle(0, 0, 1, 45)
	require.True(t, quat.ApproxEqual(want, q, 1e-6))
}

func TestResetClearsState(t *testing.T) {
	a := NewAligner(0)
	push(t, a.ThighBuf, 0, quat.Identity)
	a.ConsumeOneMatch()
	require.True(t, a.Active())

	a.Reset()
	require.False(t, a.Active())
	require.True(t, a.ThighBuf.IsEmpty())
}
