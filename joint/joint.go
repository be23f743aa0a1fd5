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

// Package joint implements the per-joint (thigh/shin) aligner: pairing
// the closest-in-time sample across the two sensors of one joint
// ("intra-joint shear alignment"), and SLERP-interpolating each sensor
// independently to an arbitrary timestamp once primed.
package joint

import (
	"github.com/kneesync/core/quat"
	"github.com/kneesync/core/sensor"
)

// SensorState is the prev/curr bracket a single sensor's consumed
// samples provide for interpolation.
type SensorState struct {
	Prev *sensor.Sample
	Curr *sensor.Sample
}

// Active reports whether the sensor has any known state at all.
func (s SensorState) Active() bool {
	return s.Curr != nil
}

// NewestTS returns the sensor's latest known timestamp, or (0, false)
// if the sensor has no state yet.
func (s SensorState) NewestTS() (int64, bool) {
	if s.Curr == nil {
		return 0, false
	}
	return s.Curr.Timestamp, true
}

// InterpolateAt returns the SLERP-interpolated quaternion at t, clamped
// to the [prev, curr] envelope. cold reports whether the result is a
// cold-start (curr present, prev absent) return rather than a genuine
// interpolation.
func (s SensorState) InterpolateAt(t int64) (q quat.Quaternion, cold, ok bool) {
	if s.Curr == nil {
		return quat.Quaternion{}, false, false
	}
	if s.Prev == nil {
		return s.Curr.Quaternion, true, true
	}
	if t <= s.Prev.Timestamp {
		return s.Prev.Quaternion, false, true
	}
	if t >= s.Curr.Timestamp {
		return s.Curr.Quaternion, false, true
	}
	span := s.Curr.Timestamp - s.Prev.Timestamp
	u := float64(t-s.Prev.Timestamp) / float64(span)
	return quat.Slerp(s.Prev.Quaternion, s.Curr.Quaternion, u), false, true
}

// Samples is the pair of samples (thigh, shin) that make up one joint's
// reading at a point in time, either of which may be absent.
type Samples struct {
	Thigh *sensor.Sample
	Shin  *sensor.Sample
}

// Aligner owns the two SensorBuffers and two SensorStates of one joint
// (one leg's thigh + shin sensor). It never advances autonomously; the
// grid scheduler drives it once per tick.
type Aligner struct {
	ThighBuf *sensor.Buffer
	ShinBuf  *sensor.Buffer

	thighState SensorState
	shinState  SensorState
}

// NewAligner returns an Aligner with the given per-sensor buffer
// capacity (<=0 for unbounded/offline mode).
func NewAligner(bufferCapacity int) *Aligner {
	return &Aligner{
		ThighBuf: sensor.NewBuffer(bufferCapacity),
		ShinBuf:  sensor.NewBuffer(bufferCapacity),
	}
}

// ThighState returns the thigh sensor's current prev/curr bracket.
func (a *Aligner) ThighState() SensorState { return a.thighState }

// ShinState returns the shin sensor's current prev/curr bracket.
func (a *Aligner) ShinState() SensorState { return a.shinState }

// ConsumeOneMatch intakes any newly-arrived samples from both buffers,
// pairing each sensor's next sample against the other sensor's current
// frontier (nearest-neighbor pairing within the joint), and returns the
// resulting (thigh, shin) SensorState pair. If a sensor's buffer is
// empty, that sensor's state is left untouched so interpolation stays
// defined as long as it has ever had data.
func (a *Aligner) ConsumeOneMatch() (thigh, shin SensorState) {
	consumeSensor(a.ThighBuf, &a.thighState, a.shinState)
	consumeSensor(a.ShinBuf, &a.shinState, a.thighState)
	return a.thighState, a.shinState
}

// consumeSensor advances one sensor's state by picking, from buf, the
// sample closest to other's current frontier (or, on cold start, the
// buffer's own oldest sample), and discarding everything up to and
// including the sample that was skipped over or consumed. A selected
// sample older than the current curr is discarded without touching the
// state, so a stale push never rewinds prev/curr.
func consumeSensor(buf *sensor.Buffer, state *SensorState, other SensorState) {
	if buf.IsEmpty() {
		return
	}
	frontier, ok := other.NewestTS()
	if !ok {
		frontier, ok = buf.OldestTS()
		if !ok {
			return
		}
	}
	idx := buf.ClosestIndex(frontier)
	selected, ok := buf.Get(idx)
	if !ok {
		return
	}
	if state.Curr != nil && selected.Timestamp < state.Curr.Timestamp {
		buf.DiscardUpTo(idx + 1)
		return
	}
	state.Prev = state.Curr
	s := selected
	state.Curr = &s
	buf.DiscardUpTo(idx + 1)
}

// NewestTS returns max(curr_thigh.ts, curr_shin.ts), or (0, false) if
// neither sensor has state yet.
func (a *Aligner) NewestTS() (int64, bool) {
	tTS, tOK := a.thighState.NewestTS()
	sTS, sOK := a.shinState.NewestTS()
	switch {
	case tOK && sOK:
		if tTS > sTS {
			return tTS, true
		}
		return sTS, true
	case tOK:
		return tTS, true
	case sOK:
		return sTS, true
	default:
		return 0, false
	}
}

// InterpolateAt SLERPs each active sensor independently to timestamp t
// and assembles the joint's Samples. coldThigh/coldShin report whether
// the corresponding field was a cold-start (non-interpolated) result.
func (a *Aligner) InterpolateAt(t int64) (samples Samples, coldThigh, coldShin bool) {
	if q, cold, ok := a.thighState.InterpolateAt(t); ok {
		samples.Thigh = &sensor.Sample{Timestamp: t, Quaternion: q}
		coldThigh = cold
	}
	if q, cold, ok := a.shinState.InterpolateAt(t); ok {
		samples.Shin = &sensor.Sample{Timestamp: t, Quaternion: q}
		coldShin = cold
	}
	return samples, coldThigh, coldShin
}

// Active reports whether this joint has at least one primed sensor.
func (a *Aligner) Active() bool {
	return a.thighState.Active() || a.shinState.Active()
}

// FullyPrimed reports whether both sensors have prev and curr set,
// i.e. the joint can interpolate without a cold-start fallback.
func (a *Aligner) FullyPrimed() bool {
	return a.thighState.Prev != nil && a.thighState.Curr != nil &&
		a.shinState.Prev != nil && a.shinState.Curr != nil
}

// Reset clears both buffers and both SensorStates.
func (a *Aligner) Reset() {
	a.ThighBuf.Clear()
	a.ShinBuf.Clear()
	a.thighState = SensorState{}
	a.shinState = SensorState{}
}
