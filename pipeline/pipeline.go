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

// Package pipeline wires the quat/sensor/joint/grid packages together
// into the top-level, explicitly-constructed pipeline object: a
// Pipeline owns the left and right joint aligners, the grid scheduler
// that drives them, and the subscriber list that receives each tick's
// AlignedSampleSet.
package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kneesync/core/grid"
	"github.com/kneesync/core/joint"
	"github.com/kneesync/core/pipeline/stats"
	"github.com/kneesync/core/quat"
	"github.com/kneesync/core/sensor"
)

// ErrAlreadyRunning is returned by Start when the pipeline is already
// ticking.
var ErrAlreadyRunning = errors.New("pipeline: already running")

// AlignedSampleSet is the pipeline's output unit. At least one of
// LeftKnee/RightKnee is always present.
type AlignedSampleSet struct {
	Timestamp int64
	LeftKnee  *joint.Samples
	RightKnee *joint.Samples
}

// Subscriber receives every AlignedSampleSet the pipeline emits. It
// must be non-blocking: it runs synchronously inside the tick that
// produced its sample set.
type Subscriber func(AlignedSampleSet)

// Pipeline is the top-level, explicitly-owned pipeline object. The
// zero value is not usable; construct with New.
type Pipeline struct {
	mu sync.Mutex

	sensorMap sensor.Map
	left      *joint.Aligner
	right     *joint.Aligner
	scheduler *grid.Scheduler
	stats     *stats.Stats

	subscribers map[int]Subscriber
	nextSubID   int

	running           bool
	stopCh            chan struct{}
	wg                sync.WaitGroup
	outputHz          int
	drainPerTickLimit int
}

// New constructs a Pipeline from a Config. bufferCapacity/
// drainPerTickLimit are taken from cfg; sensorMap defaults to
// sensor.DefaultMap() when cfg.SensorMap is unset.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.EvalAndValidate(); err != nil {
		return nil, err
	}
	sensorMap, err := cfg.ResolveSensorMap()
	if err != nil {
		return nil, err
	}
	sensorIDs := make([]int, 0, len(sensorMap))
	for id := range sensorMap {
		sensorIDs = append(sensorIDs, int(id))
	}
	left := joint.NewAligner(cfg.BufferCapacity)
	right := joint.NewAligner(cfg.BufferCapacity)
	return &Pipeline{
		sensorMap:         sensorMap,
		left:              left,
		right:             right,
		scheduler:         grid.NewScheduler(left, right, cfg.OutputHz, cfg.DrainPerTickLimit),
		stats:             stats.New(sensorIDs),
		subscribers:       make(map[int]Subscriber),
		outputHz:          cfg.OutputHz,
		drainPerTickLimit: cfg.DrainPerTickLimit,
	}, nil
}

// Start begins ticking at outputHz. Returns ErrAlreadyRunning if the
// pipeline is already active. A change in outputHz from the
// configured default re-anchors the grid scheduler (the joints'
// buffered sensor state is untouched).
func (p *Pipeline) Start(outputHz int) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	if outputHz <= 0 {
		p.mu.Unlock()
		return fmt.Errorf("pipeline: output_hz must be >0")
	}
	if outputHz != p.outputHz {
		p.outputHz = outputHz
		p.scheduler = grid.NewScheduler(p.left, p.right, outputHz, p.drainPerTickLimit)
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(p.stopCh, time.Duration(1000/outputHz)*time.Millisecond)
	return nil
}

// run is the ticking goroutine: a plain time.Ticker driving one Tick
// per period, exiting on stopCh.
func (p *Pipeline) run(stopCh chan struct{}, period time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick runs one scheduling cycle and publishes any resulting
// emissions. Start drives this automatically on a timer; Tick is
// exported so offline/batch callers can step the pipeline without a
// running ticker goroutine.
func (p *Pipeline) Tick() {
	p.mu.Lock()
	p.stats.TickCount.Add(1)
	emitted := p.scheduler.Tick()
	sets := make([]AlignedSampleSet, 0, len(emitted))
	for _, ts := range emitted {
		sets = append(sets, p.assembleLocked(ts))
	}
	subs := make([]Subscriber, 0, len(p.subscribers))
	for _, sub := range p.subscribers {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, set := range sets {
		p.publish(set, subs)
	}
}

// assembleLocked builds an AlignedSampleSet at ts from each active
// joint's interpolation. Caller must hold p.mu.
func (p *Pipeline) assembleLocked(ts int64) AlignedSampleSet {
	set := AlignedSampleSet{Timestamp: ts}
	if p.left.Active() {
		samples, _, _ := p.left.InterpolateAt(ts)
		set.LeftKnee = &samples
	}
	if p.right.Active() {
		samples, _, _ := p.right.InterpolateAt(ts)
		set.RightKnee = &samples
	}
	p.stats.EmitCount.Add(1)
	return set
}

// publish invokes every subscriber, isolating panics so one failing
// subscriber never blocks delivery to the others.
func (p *Pipeline) publish(set AlignedSampleSet, subs []Subscriber) {
	for _, sub := range subs {
		p.invoke(sub, set)
	}
}

func (p *Pipeline) invoke(sub Subscriber, set AlignedSampleSet) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("pipeline: subscriber panicked: %v", r)
			p.mu.Lock()
			p.stats.SubscriberFailures.Add(1)
			p.mu.Unlock()
		}
	}()
	sub(set)
}

// Stop halts ticking. Idempotent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()
	p.wg.Wait()
}

// Reset clears all buffers, SensorStates, grid state, and counters.
// Safe to call at any time; does not itself stop ticking.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduler.Reset()
	p.stats.Reset()
}

// PushSample enqueues one sample. Unknown sensor ids are logged and
// dropped; this is never fatal.
func (p *Pipeline) PushSample(id sensor.ID, timestampMs int64, q quat.Quaternion) {
	p.mu.Lock()
	defer p.mu.Unlock()

	desc, ok := p.sensorMap[id]
	if !ok {
		log.Warnf("pipeline: push_sample: unknown sensor id %d", id)
		p.stats.Sensor(int(id)).UnknownCount.Add(1)
		return
	}

	var aligner *joint.Aligner
	if desc.Side == sensor.SideLeft {
		aligner = p.left
	} else {
		aligner = p.right
	}
	var buf *sensor.Buffer
	if desc.Placement == sensor.PlacementThigh {
		buf = aligner.ThighBuf
	} else {
		buf = aligner.ShinBuf
	}

	q = quat.Normalize(q)
	outOfOrder, overflowed := buf.Push(sensor.Sample{Timestamp: timestampMs, Quaternion: q})

	sc := p.stats.Sensor(int(id))
	sc.PushCount.Add(1)
	if outOfOrder {
		sc.OutOfOrderCount.Add(1)
	}
	if overflowed {
		sc.OverflowCount.Add(1)
	}
	p.stats.PushCount.Add(1)
}

// Subscribe registers a callback and returns a function that
// unsubscribes it. Unsubscribe is O(1) and safe to call more than
// once.
func (p *Pipeline) Subscribe(sub Subscriber) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = sub
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, id)
			p.mu.Unlock()
		})
	}
}

// IsSingleJointMode reports whether exactly one joint currently holds
// sensor state.
func (p *Pipeline) IsSingleJointMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.activeJointLocked() {
	case grid.Left, grid.Right:
		return true
	default:
		return false
	}
}

// ActiveJoint reports which joint(s) currently hold sensor state.
func (p *Pipeline) ActiveJoint() grid.ActiveJoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeJointLocked()
}

func (p *Pipeline) activeJointLocked() grid.ActiveJoint {
	l, r := p.left.Active(), p.right.Active()
	switch {
	case l && r:
		return grid.Both
	case l:
		return grid.Left
	case r:
		return grid.Right
	default:
		return grid.None
	}
}

// DebugStats returns a point-in-time snapshot of the pipeline's
// diagnostic counters.
func (p *Pipeline) DebugStats() stats.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.Snapshot(p.scheduler.GridPosition())
}

// Stats returns the pipeline's live counter object, for wiring a
// continuously-updating exporter (e.g. stats.PrometheusExporter)
// alongside the pipeline. The counters are safe for concurrent reads.
func (p *Pipeline) Stats() *stats.Stats {
	return p.stats
}
