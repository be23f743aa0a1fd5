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

package cmd

import (
	"fmt"
	"math/rand"

	"github.com/kneesync/core/pipeline"
	"github.com/kneesync/core/quat"
	"github.com/kneesync/core/sensor"
)

// push is one synthetic (sensor, timestamp) event fed into a Pipeline
// and followed by a scheduler tick, reproducing the "push, push, ...,
// tick" shape of the spec's worked scenarios.
type push struct {
	id sensor.ID
	ts int64
}

// scenario is a named, reproducible feed for the simulate command.
type scenario struct {
	name        string
	description string
	events      []push
	ticks       int
}

var scenarios = map[string]scenario{
	"s1": {
		name:        "s1",
		description: "steady state, both joints",
		ticks:       5,
		events: func() []push {
			var evs []push
			for _, ts := range []int64{0, 11, 19, 31} {
				evs = append(evs,
					push{sensor.LeftThigh, ts}, push{sensor.LeftShin, ts},
					push{sensor.RightThigh, ts}, push{sensor.RightShin, ts})
			}
			return evs
		}(),
	},
	"s2": {
		name:        "s2",
		description: "single-joint operation",
		ticks:       10,
		events: func() []push {
			var evs []push
			for i := int64(0); i < 10; i++ {
				ts := i * 10
				evs = append(evs, push{sensor.LeftThigh, ts}, push{sensor.LeftShin, ts})
			}
			return evs
		}(),
	},
	"s3": {
		name:        "s3",
		description: "jitter absorption",
		ticks:       6,
		events: func() []push {
			var evs []push
			for _, ts := range []int64{0, 8, 23, 27, 35} {
				evs = append(evs, push{sensor.LeftThigh, ts})
			}
			for _, ts := range []int64{2, 13, 17, 29, 34} {
				evs = append(evs, push{sensor.LeftShin, ts})
			}
			return evs
		}(),
	},
	"s4": {
		name:        "s4",
		description: "gap + catch-up",
		ticks:       6,
		events: func() []push {
			var evs []push
			for _, ts := range []int64{0, 10, 20, 30, 40, 50, 260, 270, 280, 290, 300, 310} {
				evs = append(evs, push{sensor.LeftThigh, ts}, push{sensor.LeftShin, ts})
			}
			return evs
		}(),
	},
	"s5": {
		name:        "s5",
		description: "out-of-order push",
		ticks:       3,
		events:      []push{{sensor.LeftThigh, 10}, {sensor.LeftThigh, 5}},
	},
	"s6": {
		name:        "s6",
		description: "shortest-arc interpolation",
		ticks:       2,
		events:      []push{{sensor.LeftThigh, 0}, {sensor.LeftThigh, 10}},
	},
}

// runScenario feeds p with every event in s, ticking after each push,
// draining any remaining ticks afterward.
func runScenario(p *pipeline.Pipeline, s scenario, tick func()) {
	for _, ev := range s.events {
		q := quat.FromAxisAngle(0, 0, 1, float64(ev.ts%360))
		p.PushSample(ev.id, ev.ts, q)
		tick()
	}
	for i := 0; i < s.ticks; i++ {
		tick()
	}
}

// jitterFeed pushes n samples per sensor at nominal period, each
// perturbed by up to jitterMs of arrival jitter, a synthetic stand-in
// for BLE burst/reorder behavior, feeding all four canonical sensors.
func jitterFeed(p *pipeline.Pipeline, periodMs int64, n, jitterMs int, tick func()) {
	ids := []sensor.ID{sensor.LeftThigh, sensor.LeftShin, sensor.RightThigh, sensor.RightShin}
	for i := 0; i < n; i++ {
		base := int64(i) * periodMs
		for _, id := range ids {
			jitter := int64(0)
			if jitterMs > 0 {
				jitter = int64(rand.Intn(2*jitterMs+1) - jitterMs)
			}
			ts := base + jitter
			if ts < 0 {
				ts = 0
			}
			deg := float64((i * 7) % 360)
			p.PushSample(id, ts, quat.FromAxisAngle(0, 1, 0, deg))
		}
		tick()
	}
}

func listScenarios() string {
	out := ""
	for _, key := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
		out += fmt.Sprintf("  %s: %s\n", key, scenarios[key].description)
	}
	return out
}
