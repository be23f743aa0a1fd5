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
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kneesync/core/pipeline"
	"github.com/kneesync/core/pipeline/stats"
	"github.com/kneesync/core/quat"
	"github.com/kneesync/core/sensor"
)

var (
	serveHzFlag             int
	serveMonitoringPortFlag int
	serveJitterFlag         int
)

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&serveHzFlag, "output-hz", 100, "grid output rate")
	serveCmd.Flags().IntVar(&serveMonitoringPortFlag, "monitoringport", 21040, "port to serve Prometheus /metrics on")
	serveCmd.Flags().IntVar(&serveJitterFlag, "jitter-ms", 3, "max arrival jitter for the synthetic feed")
}

// serveCmd runs the pipeline's own ticker, a synthetic feeder, and the
// Prometheus exporter concurrently, coordinated with an errgroup.Group
// so any one of them failing cancels the others.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a live Pipeline with a synthetic feed and a Prometheus exporter until interrupted",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		p, err := pipeline.New(pipeline.Config{
			OutputHz:          serveHzFlag,
			BufferCapacity:    100,
			DrainPerTickLimit: 20,
		})
		if err != nil {
			log.Fatal(err)
		}

		unsub := p.Subscribe(func(set pipeline.AlignedSampleSet) {
			log.Debugf("emitted sample set at t=%d", set.Timestamp)
		})
		defer unsub()

		if err := p.Start(serveHzFlag); err != nil {
			log.Fatal(err)
		}
		defer p.Stop()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		eg, egCtx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			exporter := stats.NewPrometheusExporter(p.Stats(), serveMonitoringPortFlag)
			exporter.Start()
			return nil
		})

		eg.Go(func() error {
			return feedUntilDone(egCtx, p, serveHzFlag, serveJitterFlag)
		})

		if err := eg.Wait(); err != nil && err != context.Canceled {
			log.Fatal(err)
		}
	},
}

// feedUntilDone pushes a continuous synthetic stream to all four
// sensors at the configured rate until ctx is canceled. The pipeline's
// own ticker (started by Start) drives emission independently.
func feedUntilDone(ctx context.Context, p *pipeline.Pipeline, outputHz, jitterMs int) error {
	periodMs := int64(1000 / outputHz)
	ticker := time.NewTicker(time.Duration(periodMs) * time.Millisecond)
	defer ticker.Stop()

	ids := []sensor.ID{sensor.LeftThigh, sensor.LeftShin, sensor.RightThigh, sensor.RightShin}
	i := int64(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			base := i * periodMs
			for _, id := range ids {
				jitter := int64(0)
				if jitterMs > 0 {
					jitter = int64(rand.Intn(2*jitterMs+1) - jitterMs)
				}
				ts := base + jitter
				if ts < 0 {
					ts = 0
				}
				p.PushSample(id, ts, quat.FromAxisAngle(0, 1, 0, float64((i*7)%360)))
			}
			i++
		}
	}
}
