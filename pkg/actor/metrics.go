// Copyright 2024 The Troupe Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package actor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	totalWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "troupe",
			Subsystem: "actor",
			Name:      "number_of_workers",
			Help:      "The total number of workers in an actor system.",
		}, []string{"name"})
	workingWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "troupe",
			Subsystem: "actor",
			Name:      "number_of_working_workers",
			Help:      "The number of working workers in an actor system.",
		}, []string{"name"})
	workingDuration = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "troupe",
			Subsystem: "actor",
			Name:      "workers_cpu_seconds_total",
			Help:      "Total working time spent in seconds.",
		}, []string{"name"})
	processedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "troupe",
			Subsystem: "actor",
			Name:      "processed_messages_total",
			Help:      "Total number of messages delivered to actors.",
		}, []string{"name"})
	sliceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "troupe",
			Subsystem: "actor",
			Name:      "slice_duration_seconds",
			Help:      "Bucketed histogram of one scheduling slice duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"name"})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(totalWorkers)
	registry.MustRegister(workingWorkers)
	registry.MustRegister(workingDuration)
	registry.MustRegister(processedMessages)
	registry.MustRegister(sliceDuration)
}
