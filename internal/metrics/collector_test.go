package metrics_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/kntaj/ocrflow/internal/metrics"
	"github.com/kntaj/ocrflow/pkg/models"
)

func cents(v int) *int { return &v }

func TestCollector_FlushWritesSnapshotToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := metrics.NewCollector(rdb)
	c.Record(models.Run{
		EngineType: models.EngineAzure, Status: models.RunSucceeded,
		LatencyMs: 120, CostCents: cents(5),
		Result: &models.OCRResult{ConfidenceScore: 0.9},
	})
	c.FlushNow(context.Background())

	if !mr.Exists("ocrflow:metrics:snapshot") {
		t.Error("FlushNow() did not write the snapshot key to redis")
	}
}

func TestCollector_NilRedisSkipsFlushLoopWithoutBlocking(t *testing.T) {
	c := metrics.NewCollector(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.StartFlushLoop(ctx) // must return immediately; rdb is nil
}

func TestCollector_RecordAggregatesAcrossCalls(t *testing.T) {
	c := metrics.NewCollector(nil)
	c.Record(models.Run{EngineType: models.EngineGoogle, Status: models.RunSucceeded, LatencyMs: 100})
	c.Record(models.Run{EngineType: models.EngineGoogle, Status: models.RunFailed, LatencyMs: 200})
	// Record must not panic across repeated calls for the same engine; the
	// Prometheus series and EMA snapshot are both keyed by engine type.
}
