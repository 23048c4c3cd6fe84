package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

// Metrics holds all Prometheus metrics for the bbann index: build-phase
// durations, bucket/graph shape, fetch-engine throughput, and per-query
// search latency.
type Metrics struct {
	// Build metrics
	BuildPhaseDuration *prometheus.HistogramVec
	BuildVectorsTotal  prometheus.Counter
	BucketsTotal       prometheus.Gauge
	BucketSizeAvg      prometheus.Gauge
	BucketSizeMax      prometheus.Gauge
	BucketSizeMin      prometheus.Gauge
	GraphPointsTotal   prometheus.Gauge

	// Fetch engine metrics
	FetchWavesTotal      prometheus.Counter
	FetchReadsTotal      prometheus.Counter
	FetchReadDuration    prometheus.Histogram
	FetchBlocksPerQuery  prometheus.Histogram
	FetchVectorsPerQuery prometheus.Histogram

	// Search metrics
	SearchesTotal    *prometheus.CounterVec
	SearchLatency    *prometheus.HistogramVec
	SearchResultSize prometheus.Histogram

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		BuildPhaseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bbann_build_phase_duration_seconds",
				Help:    "Duration of each build phase (sample_and_train, partition, bucket_build, graph_save)",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 1200, 3600},
			},
			[]string{"phase"},
		),
		BuildVectorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bbann_build_vectors_total",
				Help: "Total number of corpus vectors processed during build",
			},
		),
		BucketsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bbann_buckets_total",
				Help: "Total number of disk buckets written",
			},
		),
		BucketSizeAvg: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bbann_bucket_size_avg",
				Help: "Average number of entries per bucket",
			},
		),
		BucketSizeMax: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bbann_bucket_size_max",
				Help: "Maximum number of entries in any bucket",
			},
		),
		BucketSizeMin: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bbann_bucket_size_min",
				Help: "Minimum number of entries in any bucket",
			},
		),
		GraphPointsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bbann_graph_points_total",
				Help: "Total points (centroids plus extremal samples) in the proximity graph",
			},
		),
		FetchWavesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bbann_fetch_waves_total",
				Help: "Total number of fetch-engine submission waves",
			},
		),
		FetchReadsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bbann_fetch_reads_total",
				Help: "Total number of distinct block reads issued by the fetch engine",
			},
		),
		FetchReadDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bbann_fetch_read_duration_seconds",
				Help:    "Duration of a single block read",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		FetchBlocksPerQuery: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bbann_fetch_blocks_per_query",
				Help:    "Distinct blocks fetched per query after coalescing",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
			},
		),
		FetchVectorsPerQuery: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bbann_fetch_vectors_per_query",
				Help:    "Vectors scanned per query across all fetched blocks",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
		),
		SearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bbann_searches_total",
				Help: "Total number of search operations by mode",
			},
			[]string{"mode"},
		),
		SearchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bbann_search_latency_seconds",
				Help:    "End-to-end query latency by search mode",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"mode"},
		),
		SearchResultSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bbann_search_result_size",
				Help:    "Number of results returned by a query",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
			},
		),
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bbann_requests_total",
				Help: "Total number of API requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bbann_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bbann_request_errors_total",
				Help: "Total number of API request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),
		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bbann_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bbann_memory_bytes",
				Help: "Process memory usage in bytes",
			},
		),
	}

	return m
}

// RecordRequest records a request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a request error.
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordBuildPhase records the wall-clock duration of one named build phase.
func (m *Metrics) RecordBuildPhase(phase string, d time.Duration) {
	m.BuildPhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// AddBuildVectors adds to the total corpus vectors processed during build.
func (m *Metrics) AddBuildVectors(count int) {
	m.BuildVectorsTotal.Add(float64(count))
}

// UpdateBucketStats records the shape of the bucket population produced by
// one build, the Go rendition of the original's gather_buckets_stats.
func (m *Metrics) UpdateBucketStats(total int, avg, max, min float64) {
	m.BucketsTotal.Set(float64(total))
	m.BucketSizeAvg.Set(avg)
	m.BucketSizeMax.Set(max)
	m.BucketSizeMin.Set(min)
}

// UpdateGraphPoints records the number of points held by the proximity
// graph (bucket centroids plus extremal samples).
func (m *Metrics) UpdateGraphPoints(count int) {
	m.GraphPointsTotal.Set(float64(count))
}

// RecordFetchWave records one fetch-engine submission wave covering
// waveReads distinct block reads.
func (m *Metrics) RecordFetchWave(waveReads int) {
	m.FetchWavesTotal.Inc()
	m.FetchReadsTotal.Add(float64(waveReads))
}

// RecordFetchRead records the duration of a single block read.
func (m *Metrics) RecordFetchRead(d time.Duration) {
	m.FetchReadDuration.Observe(d.Seconds())
}

// RecordFetchCoverage records, per query, how many distinct blocks were
// fetched and how many vectors were scanned across them.
func (m *Metrics) RecordFetchCoverage(blocks, vectors int) {
	m.FetchBlocksPerQuery.Observe(float64(blocks))
	m.FetchVectorsPerQuery.Observe(float64(vectors))
}

// RecordSearch records one query's latency, mode, and result count.
func (m *Metrics) RecordSearch(mode string, duration time.Duration, resultSize int) {
	m.SearchesTotal.WithLabelValues(mode).Inc()
	m.SearchLatency.WithLabelValues(mode).Observe(duration.Seconds())
	m.SearchResultSize.Observe(float64(resultSize))
}

// UpdateGoroutineCount updates the goroutine count gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the process memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
