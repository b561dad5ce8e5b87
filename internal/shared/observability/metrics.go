package observability

import (
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phpmodel_parsing_seconds",
		Help:    "Time spent on one stage of processing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	FilesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpmodel_files_processed_total",
		Help: "Source files seen by an analysis run, by outcome.",
	}, []string{"outcome"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "phpmodel_run_seconds",
		Help:    "Wall time of a complete analysis run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	Symbols = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "phpmodel_symbols",
		Help: "Registry entries after the last run, by kind and state.",
	}, []string{"kind", "state"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phpmodel_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatchRunsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phpmodel_watch_runs_throttled_total",
		Help: "Re-runs that had to wait for the watch rate limiter.",
	})

	IndexWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phpmodel_index_writes_total",
		Help: "Rows written to the SQLite index, by table.",
	}, []string{"table"})

	HeapAllocMB = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "phpmodel_heap_alloc_megabytes",
		Help: "Heap allocation sampled at the end of a run.",
	})
)

// Outcome labels for FilesProcessedTotal.
const (
	OutcomeParsed  = "parsed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// WriteToTextfile dumps the default registry in the node-exporter textfile
// format. path must end in .prom.
func WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

// RecordHeap samples the current heap allocation into HeapAllocMB.
func RecordHeap() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	HeapAllocMB.Set(float64(m.Alloc) / 1024 / 1024)
}
