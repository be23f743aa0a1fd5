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

package stats

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter serves the live Stats counters as gauges, read
// directly off the Stats object rather than scraped over HTTP: the
// Pipeline and the exporter share a process, so each gauge reads its
// counter live on every scrape.
type PrometheusExporter struct {
	registry   *prometheus.Registry
	listenPort int
}

// NewPrometheusExporter registers one GaugeFunc per top-level counter on
// s, plus push, out-of-order and overflow gauges for each sensor known
// to s at construction. Per-sensor unknown counts are not exported.
func NewPrometheusExporter(s *Stats, listenPort int) *PrometheusExporter {
	e := &PrometheusExporter{registry: prometheus.NewRegistry(), listenPort: listenPort}

	e.registerGaugeFunc("kneesync_push_count", func() float64 { return float64(s.PushCount.Load()) })
	e.registerGaugeFunc("kneesync_emit_count", func() float64 { return float64(s.EmitCount.Load()) })
	e.registerGaugeFunc("kneesync_tick_count", func() float64 { return float64(s.TickCount.Load()) })
	e.registerGaugeFunc("kneesync_subscriber_failures", func() float64 { return float64(s.SubscriberFailures.Load()) })

	for id, p := range s.perSensor {
		p := p
		e.registerGaugeFunc(fmt.Sprintf("kneesync_sensor_%d_push_count", id), func() float64 { return float64(p.PushCount.Load()) })
		e.registerGaugeFunc(fmt.Sprintf("kneesync_sensor_%d_out_of_order_count", id), func() float64 { return float64(p.OutOfOrderCount.Load()) })
		e.registerGaugeFunc(fmt.Sprintf("kneesync_sensor_%d_overflow_count", id), func() float64 { return float64(p.OverflowCount.Load()) })
	}

	return e
}

func (e *PrometheusExporter) registerGaugeFunc(name string, fn func() float64) {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: name}, fn)
	if err := e.registry.Register(g); err != nil {
		log.Errorf("pipeline/stats: failed to register metric %s: %v", name, err)
	}
}

// Start serves /metrics on listenPort. It blocks; run it in its own
// goroutine.
func (e *PrometheusExporter) Start() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", e.listenPort), mux))
}
