// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsReporter exports pipeline progress as Prometheus metrics.
type MetricsReporter struct {
	resolved      *prometheus.CounterVec
	failed        *prometheus.CounterVec
	unresolved    *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
}

var _ Reporter = (*MetricsReporter)(nil)

// NewMetricsReporter registers the pipeline metrics on reg.
// Registering twice on the same registry panics, as with promauto.
func NewMetricsReporter(reg prometheus.Registerer) *MetricsReporter {
	factory := promauto.With(reg)
	return &MetricsReporter{
		resolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deft",
				Name:      "resolved_total",
				Help:      "Strings resolved, by stage and matcher",
			},
			[]string{"stage", "matcher"},
		),
		failed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deft",
				Name:      "failed_total",
				Help:      "Strings left unresolved because the matcher failed",
			},
			[]string{"stage", "matcher"},
		),
		unresolved: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "deft",
				Name:      "unresolved",
				Help:      "Strings not yet resolved",
			},
			[]string{"pipeline"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "deft",
				Name:      "stage_duration_seconds",
				Help:      "Time taken to apply a stage",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
			},
			[]string{"matcher"},
		),
	}
}

func (m *MetricsReporter) Start(pipeline string, _ []Stage, inputs int) {
	m.unresolved.WithLabelValues(pipeline).Set(float64(inputs))
}

func (m *MetricsReporter) StageStarted(_ string, _ int, _ Stage, _ int) {}

func (m *MetricsReporter) StageFinished(report *StageReport) {
	stage := strconv.Itoa(report.Index)
	m.resolved.WithLabelValues(stage, report.Matcher).Add(float64(len(report.Resolved)))
	m.failed.WithLabelValues(stage, report.Matcher).Add(float64(report.Failed))
	m.unresolved.WithLabelValues(report.Pipeline).Set(float64(report.Remaining()))
	m.stageDuration.WithLabelValues(report.Matcher).Observe(report.Duration.Seconds())
}

func (m *MetricsReporter) Exhausted(_ string) {}
