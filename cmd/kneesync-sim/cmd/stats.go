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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kneesync/core/pipeline"
)

func init() {
	RootCmd.AddCommand(statsCmd)
}

// statsCmd runs a short default jitter feed and prints the resulting
// debug_stats table, a quick self-check that the pipeline behaves
// sanely. There is no live daemon to query here, so the dump is of a
// fresh in-process run instead.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Run a brief synthetic self-check and print debug_stats",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		p, err := pipeline.New(pipeline.Config{OutputHz: 100, BufferCapacity: 100, DrainPerTickLimit: 20})
		if err != nil {
			log.Fatal(err)
		}

		emitted := 0
		unsub := p.Subscribe(func(pipeline.AlignedSampleSet) { emitted++ })
		defer unsub()

		jitterFeed(p, 10, 50, 3, p.Tick)
		printStats(p, emitted)
	},
}
