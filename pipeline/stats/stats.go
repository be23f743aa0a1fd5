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

// Package stats holds the pipeline's diagnostic counters: push/emit/
// tick totals, per-sensor push/out-of-order/overflow/unknown counts,
// and subscriber failures. These are observability only, never part
// of the functional contract.
package stats

import "sync/atomic"

// PerSensor holds the diagnostic counters for one sensor.
type PerSensor struct {
	PushCount       atomic.Int64
	OutOfOrderCount atomic.Int64
	OverflowCount   atomic.Int64
	UnknownCount    atomic.Int64
}

// PerSensorSnapshot is a point-in-time, plain-value copy of PerSensor, safe to
// read/print/marshal without racing the live counters.
type PerSensorSnapshot struct {
	PushCount       int64
	OutOfOrderCount int64
	OverflowCount   int64
	UnknownCount    int64
}

func (p *PerSensor) snapshot() PerSensorSnapshot {
	return PerSensorSnapshot{
		PushCount:       p.PushCount.Load(),
		OutOfOrderCount: p.OutOfOrderCount.Load(),
		OverflowCount:   p.OverflowCount.Load(),
		UnknownCount:    p.UnknownCount.Load(),
	}
}

func (p *PerSensor) reset() {
	p.PushCount.Store(0)
	p.OutOfOrderCount.Store(0)
	p.OverflowCount.Store(0)
	p.UnknownCount.Store(0)
}

// Stats is the Pipeline's counter set: one PushCount/EmitCount/TickCount
// trio plus the per-sensor breakdown and the subscriber-failure
// counter.
type Stats struct {
	PushCount          atomic.Int64
	EmitCount          atomic.Int64
	TickCount          atomic.Int64
	SubscriberFailures atomic.Int64

	perSensor map[int]*PerSensor
}

// New returns a Stats with a PerSensor slot pre-allocated for each of
// the given sensor IDs.
func New(sensorIDs []int) *Stats {
	s := &Stats{perSensor: make(map[int]*PerSensor, len(sensorIDs))}
	for _, id := range sensorIDs {
		s.perSensor[id] = &PerSensor{}
	}
	return s
}

// Sensor returns the PerSensor counters for id, allocating a fresh slot
// if id was never registered (defensive: an operator-edited sensor_map
// should never be able to crash the stats layer).
func (s *Stats) Sensor(id int) *PerSensor {
	if p, ok := s.perSensor[id]; ok {
		return p
	}
	p := &PerSensor{}
	s.perSensor[id] = p
	return p
}

// Reset atomically sets every counter back to 0.
func (s *Stats) Reset() {
	s.PushCount.Store(0)
	s.EmitCount.Store(0)
	s.TickCount.Store(0)
	s.SubscriberFailures.Store(0)
	for _, p := range s.perSensor {
		p.reset()
	}
}

// Snapshot is the plain-value form of Stats returned by
// Pipeline.DebugStats.
type Snapshot struct {
	PushCount          int64
	EmitCount          int64
	TickCount          int64
	GridPosition       int64
	SubscriberFailures int64
	PerSensor          map[int]PerSensorSnapshot
}

// Snapshot copies the current counter values into a Snapshot, adding
// gridPosition (owned by the scheduler, not this package) as the fixed
// debug_stats.grid_position field.
func (s *Stats) Snapshot(gridPosition int64) Snapshot {
	snap := Snapshot{
		PushCount:          s.PushCount.Load(),
		EmitCount:          s.EmitCount.Load(),
		TickCount:          s.TickCount.Load(),
		GridPosition:       gridPosition,
		SubscriberFailures: s.SubscriberFailures.Load(),
		PerSensor:          make(map[int]PerSensorSnapshot, len(s.perSensor)),
	}
	for id, p := range s.perSensor {
		snap.PerSensor[id] = p.snapshot()
	}
	return snap
}
