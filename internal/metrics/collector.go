// Package metrics implements the in-process metrics collector referenced by
// the Run Store's attachMetricsSnapshot operation: per-engine request
// counts, latency, cost, and confidence, exposed as Prometheus counters and
// histograms and
// periodically flushed to a Redis side store.
package metrics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocrflow_engine_requests_total",
		Help: "Total OCR driver invocations, by engine and outcome.",
	}, []string{"engine", "outcome"})

	latencyHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocrflow_engine_latency_ms",
		Help:    "OCR driver call latency in milliseconds, by engine.",
		Buckets: prometheus.ExponentialBuckets(50, 2, 12),
	}, []string{"engine"})

	costCentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocrflow_engine_cost_cents_total",
		Help: "Total estimated spend in cents, by engine.",
	}, []string{"engine"})

	confidenceHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocrflow_engine_confidence_score",
		Help:    "OCR result confidence score, by engine.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"engine"})
)

func init() {
	prometheus.MustRegister(requestsTotal, latencyHistogram, costCentsTotal, confidenceHistogram)
}

// snapshot is the per-engine rollup pushed to the side store on each flush
// tick, with an exponential-moving-average latency estimate per engine.
type snapshot struct {
	Requests        int64   `json:"requests"`
	Failures        int64   `json:"failures"`
	EMALatencyMs    float64 `json:"ema_latency_ms"`
	TotalCostCents  int64   `json:"total_cost_cents"`
	LastConfidence  float64 `json:"last_confidence"`
}

// Collector aggregates per-engine metrics in memory and periodically
// flushes a JSON snapshot to Redis. Redis is optional — when rdb is nil,
// flushes are skipped and the Prometheus series remain the source of truth.
type Collector struct {
	mu        sync.Mutex
	snapshots map[models.OCREngineType]*snapshot

	rdb        *redis.Client
	flushEvery time.Duration
	stopCh     chan struct{}
}

// NewCollector builds a collector. rdb may be nil to disable the side-store
// flush entirely.
func NewCollector(rdb *redis.Client) *Collector {
	return &Collector{
		snapshots:  make(map[models.OCREngineType]*snapshot),
		rdb:        rdb,
		flushEvery: 30 * time.Second,
		stopCh:     make(chan struct{}),
	}
}

// Record folds one completed Run's outcome into the engine's running
// snapshot and the Prometheus series, smoothing latency with a 7:3
// prior-to-new EMA weighting so a single slow call doesn't whipsaw the
// running estimate.
func (c *Collector) Record(r models.Run) {
	outcome := "success"
	if r.Status != models.RunSucceeded {
		outcome = "failure"
	}
	requestsTotal.WithLabelValues(string(r.EngineType), outcome).Inc()
	latencyHistogram.WithLabelValues(string(r.EngineType)).Observe(float64(r.LatencyMs))
	if r.CostCents != nil {
		costCentsTotal.WithLabelValues(string(r.EngineType)).Add(float64(*r.CostCents))
	}
	if r.Result != nil {
		confidenceHistogram.WithLabelValues(string(r.EngineType)).Observe(r.Result.ConfidenceScore)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snapshots[r.EngineType]
	if !ok {
		s = &snapshot{}
		c.snapshots[r.EngineType] = s
	}
	s.Requests++
	if outcome == "failure" {
		s.Failures++
	}
	if s.EMALatencyMs == 0 {
		s.EMALatencyMs = float64(r.LatencyMs)
	} else {
		s.EMALatencyMs = (s.EMALatencyMs*7 + float64(r.LatencyMs)*3) / 10
	}
	if r.CostCents != nil {
		s.TotalCostCents += int64(*r.CostCents)
	}
	if r.Result != nil {
		s.LastConfidence = r.Result.ConfidenceScore
	}
}

// StartFlushLoop runs until ctx is cancelled, pushing snapshots to Redis on
// each tick. Flush failures are logged and never propagated — the side
// store is a convenience sink, not the metrics system of record.
func (c *Collector) StartFlushLoop(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	ticker := time.NewTicker(c.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

// Stop ends a running flush loop.
func (c *Collector) Stop() { close(c.stopCh) }

// FlushNow pushes the current snapshot to Redis immediately, outside the
// regular tick interval. Exposed for callers (and tests) that need a
// deterministic flush rather than waiting on the loop's ticker.
func (c *Collector) FlushNow(ctx context.Context) { c.flush(ctx) }

func (c *Collector) flush(ctx context.Context) {
	c.mu.Lock()
	payload := make(map[models.OCREngineType]snapshot, len(c.snapshots))
	for k, v := range c.snapshots {
		payload[k] = *v
	}
	c.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Msg("metrics: marshal snapshot failed")
		return
	}
	if err := c.rdb.Set(ctx, "ocrflow:metrics:snapshot", data, 0).Err(); err != nil {
		log.Warn().Err(err).Msg("metrics: flush to redis failed")
	}
}
