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

package pipeline

import (
	"testing"

	"github.com/kneesync/core/grid"
	"github.com/kneesync/core/quat"
	"github.com/kneesync/core/sensor"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(Config{OutputHz: 100, BufferCapacity: 100, DrainPerTickLimit: 20})
	require.NoError(t, err)
	return p
}

// TestStartTwiceFails covers the AlreadyRunning error kind.
func TestStartTwiceFails(t *testing.T) {
	p := newTestPipeline(t)
	require.NoError(t, p.Start(100))
	defer p.Stop()
	require.ErrorIs(t, p.Start(100), ErrAlreadyRunning)
}

func TestStopIdempotent(t *testing.T) {
	p := newTestPipeline(t)
	require.NoError(t, p.Start(100))
	p.Stop()
	p.Stop()
}

// TestPushUnknownSensorDropped covers the UnknownSensor policy: logged
// and dropped, never fatal.
func TestPushUnknownSensorDropped(t *testing.T) {
	p := newTestPipeline(t)
	p.PushSample(sensor.ID(200), 0, quat.Identity)

	snap := p.DebugStats()
	require.Equal(t, int64(1), snap.PerSensor[200].UnknownCount)
	require.Equal(t, int64(0), snap.PushCount)
}

// TestSingleJointMode checks that only one joint receiving data
// leaves the other absent from emissions.
func TestSingleJointMode(t *testing.T) {
	p := newTestPipeline(t)

	var sets []AlignedSampleSet
	unsub := p.Subscribe(func(s AlignedSampleSet) { sets = append(sets, s) })
	defer unsub()

	for i := int64(0); i < 12; i++ {
		ts := i * 10
		p.PushSample(sensor.LeftThigh, ts, quat.Identity)
		p.PushSample(sensor.LeftShin, ts, quat.Identity)
		p.Tick()
	}

	require.NotEmpty(t, sets)
	for _, s := range sets {
		require.NotNil(t, s.LeftKnee)
		require.Nil(t, s.RightKnee)
	}
	require.True(t, p.IsSingleJointMode())
	require.Equal(t, grid.Left, p.ActiveJoint())
}

// TestBothJointsSteadyState checks that a continuous feed to all four
// sensors yields emissions with both knees populated (burst timing is
// exercised separately in the grid package tests).
func TestBothJointsSteadyState(t *testing.T) {
	p := newTestPipeline(t)

	var sets []AlignedSampleSet
	unsub := p.Subscribe(func(s AlignedSampleSet) { sets = append(sets, s) })
	defer unsub()

	ids := []sensor.ID{sensor.LeftThigh, sensor.LeftShin, sensor.RightThigh, sensor.RightShin}
	for i := int64(0); i < 10; i++ {
		ts := i * 10
		for _, id := range ids {
			p.PushSample(id, ts, quat.Identity)
		}
		p.Tick()
	}

	require.NotEmpty(t, sets)
	for _, s := range sets {
		require.NotNil(t, s.LeftKnee)
		require.NotNil(t, s.RightKnee)
		require.True(t, quat.ApproxEqual(quat.Identity, s.LeftKnee.Thigh.Quaternion, 1e-9))
	}
	require.Equal(t, grid.Both, p.ActiveJoint())
}

// TestSubscriberIsolation checks that a panicking subscriber never
// prevents delivery to the others, across repeated emissions.
func TestSubscriberIsolation(t *testing.T) {
	p := newTestPipeline(t)

	var goodCount int
	p.Subscribe(func(AlignedSampleSet) { panic("boom") })
	p.Subscribe(func(AlignedSampleSet) { goodCount++ })

	ids := []sensor.ID{sensor.LeftThigh, sensor.LeftShin}
	for i := int64(0); i < 5; i++ {
		ts := i * 10
		for _, id := range ids {
			p.PushSample(id, ts, quat.Identity)
		}
		p.Tick()
	}

	require.Greater(t, goodCount, 0)
	snap := p.DebugStats()
	require.Greater(t, snap.SubscriberFailures, int64(0))
}

// TestUnsubscribeStopsDelivery checks the unsubscribe handle actually
// removes the subscriber.
func TestUnsubscribeStopsDelivery(t *testing.T) {
	p := newTestPipeline(t)

	count := 0
	unsub := p.Subscribe(func(AlignedSampleSet) { count++ })

	p.PushSample(sensor.LeftThigh, 0, quat.Identity)
	p.PushSample(sensor.LeftShin, 0, quat.Identity)
	p.Tick()
	unsub()
	unsub() // idempotent

	before := count
	p.PushSample(sensor.LeftThigh, 10, quat.Identity)
	p.PushSample(sensor.LeftShin, 10, quat.Identity)
	p.Tick()
	require.Equal(t, before, count)
}

// TestResetIdempotence checks that after reset, counters return to
// zero and the pipeline behaves like a fresh instance.
func TestResetIdempotence(t *testing.T) {
	p := newTestPipeline(t)

	p.PushSample(sensor.LeftThigh, 0, quat.Identity)
	p.PushSample(sensor.LeftShin, 0, quat.Identity)
	p.Tick()
	require.NotZero(t, p.DebugStats().TickCount)

	p.Reset()
	snap := p.DebugStats()
	require.Zero(t, snap.EmitCount)
	require.Zero(t, snap.TickCount)
	require.Zero(t, snap.PushCount)
	require.Equal(t, grid.None, p.ActiveJoint())

	p.PushSample(sensor.LeftThigh, 0, quat.Identity)
	p.PushSample(sensor.LeftShin, 0, quat.Identity)
	p.Tick()
	require.Equal(t, grid.Left, p.ActiveJoint())
}

func TestDebugStatsGridPosition(t *testing.T) {
	p := newTestPipeline(t)

	p.PushSample(sensor.LeftThigh, 0, quat.Identity)
	p.PushSample(sensor.LeftShin, 0, quat.Identity)
	p.Tick()
	p.PushSample(sensor.LeftThigh, 10, quat.Identity)
	p.PushSample(sensor.LeftShin, 10, quat.Identity)
	p.Tick()

	snap := p.DebugStats()
	require.GreaterOrEqual(t, snap.GridPosition, int64(0))
}
