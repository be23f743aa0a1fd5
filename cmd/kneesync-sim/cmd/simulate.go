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
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kneesync/core/pipeline"
)

var (
	simulateScenarioFlag string
	simulateHzFlag       int
	simulateJitterFlag   int
	simulateSamplesFlag  int
)

func init() {
	RootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&simulateScenarioFlag, "scenario", "s", "", fmt.Sprintf("run a named scenario instead of the jitter feed:\n%s", listScenarios()))
	simulateCmd.Flags().IntVar(&simulateHzFlag, "output-hz", 100, "grid output rate")
	simulateCmd.Flags().IntVar(&simulateJitterFlag, "jitter-ms", 3, "max arrival jitter for the synthetic feed")
	simulateCmd.Flags().IntVar(&simulateSamplesFlag, "samples", 200, "number of per-sensor samples for the synthetic feed")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive an in-process Pipeline with synthetic data and print diagnostics",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		p, err := pipeline.New(pipeline.Config{
			OutputHz:          simulateHzFlag,
			BufferCapacity:    100,
			DrainPerTickLimit: 20,
		})
		if err != nil {
			log.Fatal(err)
		}

		emitted := 0
		unsub := p.Subscribe(func(pipeline.AlignedSampleSet) { emitted++ })
		defer unsub()

		if simulateScenarioFlag != "" {
			s, ok := scenarios[simulateScenarioFlag]
			if !ok {
				log.Fatalf("unknown scenario %q\n%s", simulateScenarioFlag, listScenarios())
			}
			log.Infof("running scenario %s: %s", s.name, s.description)
			runScenario(p, s, p.Tick)
		} else {
			log.Infof("running synthetic jitter feed: %d samples/sensor, jitter=%dms", simulateSamplesFlag, simulateJitterFlag)
			jitterFeed(p, int64(1000/simulateHzFlag), simulateSamplesFlag, simulateJitterFlag, p.Tick)
		}

		printStats(p, emitted)
	},
}

// printStats renders a Pipeline's DebugStats as a table, highlighting
// anomaly counters in red when non-zero.
func printStats(p *pipeline.Pipeline, emitted int) {
	snap := p.DebugStats()

	fmt.Printf("active joint: %s   single-joint mode: %v   emitted sample sets: %d\n", p.ActiveJoint(), p.IsSingleJointMode(), emitted)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"counter", "value"})
	table.Append([]string{"push_count", fmt.Sprintf("%d", snap.PushCount)})
	table.Append([]string{"emit_count", fmt.Sprintf("%d", snap.EmitCount)})
	table.Append([]string{"tick_count", fmt.Sprintf("%d", snap.TickCount)})
	table.Append([]string{"grid_position", fmt.Sprintf("%d", snap.GridPosition)})
	table.Append([]string{"subscriber_failures", highlightIfNonZero(snap.SubscriberFailures)})
	table.Render()

	sensorTable := tablewriter.NewWriter(os.Stdout)
	sensorTable.SetHeader([]string{"sensor_id", "push_count", "out_of_order", "overflow", "unknown"})
	for id := 0; id < 4; id++ {
		ps := snap.PerSensor[id]
		sensorTable.Append([]string{
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%d", ps.PushCount),
			highlightIfNonZero(ps.OutOfOrderCount),
			highlightIfNonZero(ps.OverflowCount),
			highlightIfNonZero(ps.UnknownCount),
		})
	}
	sensorTable.Render()
}

func highlightIfNonZero(v int64) string {
	s := fmt.Sprintf("%d", v)
	if v == 0 {
		return s
	}
	return color.New(color.FgRed).Sprint(s)
}
