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

// Package grid drives the fixed-rate output grid: per tick it asks
// each joint aligner to intake new data, computes the inter-joint scan
// line, and advances the grid position monotonically, without ever
// stepping past the point where an active joint has no data yet. This
// is a grid-snap scheduler: it emits on a fixed-period grid rather than
// at each sensor's native arrival times.
package grid

import "github.com/kneesync/core/joint"

// ActiveJoint reports which joint(s) currently hold sensor state.
type ActiveJoint uint8

// Possible activity states.
const (
	None ActiveJoint = iota
	Left
	Right
	Both
)

// String implements fmt.Stringer.
func (a ActiveJoint) String() string {
	switch a {
	case Left:
		return "left"
	case Right:
		return "right"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// Scheduler advances a monotonic grid position at a fixed period,
// bracketed by the left and right joint aligners it drives. It holds
// no sample data itself; all sample state lives in the two Aligners.
type Scheduler struct {
	left, right *joint.Aligner

	periodMs          int64
	drainPerTickLimit int

	gridPosition int64
	initialized  bool
}

// DefaultDrainPerTickLimit bounds how many grid points a single Tick
// may emit during catch-up after a stall, so a long gap in incoming
// data can't make one Tick call emit unboundedly many samples at once.
const DefaultDrainPerTickLimit = 20

// NewScheduler returns a Scheduler ticking at outputHz, driving left
// and right. drainPerTickLimit <= 0 falls back to
// DefaultDrainPerTickLimit.
func NewScheduler(left, right *joint.Aligner, outputHz, drainPerTickLimit int) *Scheduler {
	if drainPerTickLimit <= 0 {
		drainPerTickLimit = DefaultDrainPerTickLimit
	}
	return &Scheduler{
		left:              left,
		right:             right,
		periodMs:          1000 / int64(outputHz),
		drainPerTickLimit: drainPerTickLimit,
	}
}

// PeriodMs returns the configured inter-emission period Δ.
func (s *Scheduler) PeriodMs() int64 {
	return s.periodMs
}

// GridPosition returns the timestamp of the last (or, before the first
// emission, pending) grid point.
func (s *Scheduler) GridPosition() int64 {
	return s.gridPosition
}

// Initialized reports whether the grid has been anchored to an initial
// scan-line position yet.
func (s *Scheduler) Initialized() bool {
	return s.initialized
}

// ActiveJoint reports which joint(s) currently hold sensor state.
func (s *Scheduler) ActiveJoint() ActiveJoint {
	l, r := s.left.Active(), s.right.Active()
	switch {
	case l && r:
		return Both
	case l:
		return Left
	case r:
		return Right
	default:
		return None
	}
}

// IsSingleJointMode reports whether exactly one joint is active.
func (s *Scheduler) IsSingleJointMode() bool {
	switch s.ActiveJoint() {
	case Left, Right:
		return true
	default:
		return false
	}
}

// scanLine returns min(leftJoint.newest_ts, rightJoint.newest_ts) if
// both joints are active, else the single active joint's newest_ts, or
// (0, false) if neither joint has data. Using the minimum forbids the
// grid from ever advancing past a point where an active sensor has no
// data yet, so the grid never extrapolates.
func (s *Scheduler) scanLine() (int64, bool) {
	lts, lok := s.left.NewestTS()
	rts, rok := s.right.NewestTS()
	switch {
	case lok && rok:
		if lts < rts {
			return lts, true
		}
		return rts, true
	case lok:
		return lts, true
	case rok:
		return rts, true
	default:
		return 0, false
	}
}

// Tick runs one scheduling cycle: it intakes new data into both
// joints, then advances gridPosition by as many whole periods as the
// scan line safely allows (bounded by drainPerTickLimit), returning
// the grid timestamps to emit, in increasing order. A nil return means
// no emission this tick, because there's no data yet, the grid just
// initialized, no joint is fully primed yet, or the scan line hasn't
// reached the next grid point.
func (s *Scheduler) Tick() []int64 {
	s.left.ConsumeOneMatch()
	s.right.ConsumeOneMatch()

	scan, ok := s.scanLine()
	if !ok {
		return nil
	}

	if !s.initialized {
		s.gridPosition = scan
		s.initialized = true
		return nil
	}

	if !s.left.FullyPrimed() && !s.right.FullyPrimed() {
		return nil
	}

	var emitted []int64
	for i := 0; i < s.drainPerTickLimit; i++ {
		next := s.gridPosition + s.periodMs
		if next > scan {
			break
		}
		s.gridPosition = next
		emitted = append(emitted, next)
	}
	return emitted
}

// Reset clears both joints and the grid position/initialization state.
func (s *Scheduler) Reset() {
	s.left.Reset()
	s.right.Reset()
	s.gridPosition = 0
	s.initialized = false
}
