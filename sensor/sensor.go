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

// Package sensor holds the per-sensor data model: the Sample and
// SensorID types, the fixed sensor-to-joint mapping table, and the
// timestamp-ordered Buffer each sensor's samples live in.
package sensor

import "github.com/kneesync/core/quat"

// Side is which leg a sensor is mounted on.
type Side uint8

// Supported sides.
const (
	SideLeft Side = iota
	SideRight
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// Placement is where on the leg a sensor is mounted.
type Placement uint8

// Supported placements.
const (
	PlacementThigh Placement = iota
	PlacementShin
)

// String implements fmt.Stringer.
func (p Placement) String() string {
	if p == PlacementShin {
		return "shin"
	}
	return "thigh"
}

// ID is a compact sensor identifier. The four canonical IDs below cover
// a dual-knee rig; ID itself is just an index into the Map, so a
// custom rig could extend it without touching this package.
type ID uint8

// Canonical sensor IDs for a two-knee rig.
const (
	LeftThigh ID = iota
	LeftShin
	RightThigh
	RightShin
)

// Descriptor locates a SensorID on the body.
type Descriptor struct {
	Side      Side
	Placement Placement
}

// Map is the SensorID -> (joint, placement) table a Pipeline routes
// incoming samples through. It is a plain map rather than a constant
// table so a Pipeline can be configured with a custom mapping for rigs
// whose sensors don't enumerate as the canonical four ids.
type Map map[ID]Descriptor

// DefaultMap is the canonical two-knee mapping.
func DefaultMap() Map {
	return Map{
		LeftThigh:  {Side: SideLeft, Placement: PlacementThigh},
		LeftShin:   {Side: SideLeft, Placement: PlacementShin},
		RightThigh: {Side: SideRight, Placement: PlacementThigh},
		RightShin:  {Side: SideRight, Placement: PlacementShin},
	}
}

// Sample is one orientation reading at a point in time. Timestamp is
// monotonic milliseconds as assigned upstream by the sensor's
// synchronized clock; this package never originates one.
type Sample struct {
	Timestamp  int64
	Quaternion quat.Quaternion
}
