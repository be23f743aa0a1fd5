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
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kneesync/core/sensor"
	yaml "gopkg.in/yaml.v2"
)

// Config represents the configuration we expect to read from file.
type Config struct {
	OutputHz          int               // grid output rate
	BufferCapacity    int               // per-sensor ring buffer depth, <=0 for unbounded
	DrainPerTickLimit int               // catch-up cap per Tick, <=0 uses grid.DefaultDrainPerTickLimit
	SensorMap         map[string]string // raw hardware sensor id (e.g. "5") -> placement ("left_thigh", "left_shin", "right_thigh", "right_shin"); empty uses sensor.DefaultMap
}

// EvalAndValidate makes sure config is valid for use.
func (c *Config) EvalAndValidate() error {
	if c.OutputHz <= 0 {
		return fmt.Errorf("bad config: 'outputhz' must be >0")
	}
	if 1000%c.OutputHz != 0 {
		return fmt.Errorf("bad config: 'outputhz' must evenly divide 1000ms")
	}
	if c.BufferCapacity < 0 {
		return fmt.Errorf("bad config: 'buffercapacity' must be >=0")
	}
	if c.DrainPerTickLimit < 0 {
		return fmt.Errorf("bad config: 'drainperticklimit' must be >=0")
	}
	if _, err := c.ResolveSensorMap(); err != nil {
		return err
	}
	return nil
}

// placementNames maps a config-file placement string to its (side,
// placement) descriptor.
var placementNames = map[string]sensor.Descriptor{
	"left_thigh":  {Side: sensor.SideLeft, Placement: sensor.PlacementThigh},
	"left_shin":   {Side: sensor.SideLeft, Placement: sensor.PlacementShin},
	"right_thigh": {Side: sensor.SideRight, Placement: sensor.PlacementThigh},
	"right_shin":  {Side: sensor.SideRight, Placement: sensor.PlacementShin},
}

// ResolveSensorMap returns the sensor.Map this Config describes: the
// canonical 4-sensor layout when SensorMap is unset, or a remapping of
// raw hardware ids to the four fixed placements when it is set. This
// lets a rig whose IMUs don't happen to enumerate as 0-3 still report
// through the fixed LeftThigh/LeftShin/RightThigh/RightShin placements
// the rest of the pipeline assumes.
func (c *Config) ResolveSensorMap() (sensor.Map, error) {
	if len(c.SensorMap) == 0 {
		return sensor.DefaultMap(), nil
	}
	m := make(sensor.Map, len(c.SensorMap))
	for rawID, placement := range c.SensorMap {
		n, err := strconv.ParseUint(rawID, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad config: 'sensormap' key %q is not a sensor id: %w", rawID, err)
		}
		desc, ok := placementNames[strings.ToLower(placement)]
		if !ok {
			return nil, fmt.Errorf("bad config: 'sensormap' value %q must be one of left_thigh, left_shin, right_thigh, right_shin", placement)
		}
		m[sensor.ID(n)] = desc
	}
	return m, nil
}

// ReadConfig reads config and unmarshals it from yaml into Config.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Config{}
	err = yaml.UnmarshalStrict(data, &c)
	return &c, err
}
