// Package metrics declares the Prometheus collectors exposed by the
// manager and worker binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager-side collectors.
var (
	CrackRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "md5cracker_crack_requests_total",
		Help: "Total number of crack requests accepted.",
	})

	StatusRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "md5cracker_status_requests_total",
		Help: "Total number of status polls served.",
	})

	TaskPublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "md5cracker_task_publish_failures_total",
		Help: "Total number of task publish failures at submission time.",
	})

	SweeperRepublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "md5cracker_sweeper_republished_total",
		Help: "Total number of tasks successfully re-published by the retry sweeper.",
	})

	ResultsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md5cracker_results_ingested_total",
		Help: "Total number of result messages ingested, by terminal status.",
	}, []string{"status"})
)

// Worker-side collectors.
var (
	TasksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "md5cracker_worker_tasks_processed_total",
		Help: "Total tasks processed by this worker, by outcome.",
	}, []string{"status"})

	TasksInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "md5cracker_worker_tasks_in_progress",
		Help: "Tasks currently in progress on this worker (0 or 1; prefetch is 1).",
	})

	CombinationsPerSecond = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "md5cracker_worker_combinations_per_second",
		Help: "Combinations processed per second, computed from elapsed task time.",
	})
)
