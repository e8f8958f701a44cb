package core_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"gardencore/internal/core"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := core.NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, "generate_design", true, 10*time.Millisecond)
	rec.Observe(ctx, "generate_design", false, 30*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	stats := rec.Snapshot()
	if len(stats) != 1 {
		t.Fatalf("expected one operation, got %+v", stats)
	}
	got := stats["generate_design"]
	if got.Calls != 2 || got.Errors != 1 {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if math.Abs(got.MaxMS-30) > 1e-9 || math.Abs(got.MeanMS()-20) > 1e-9 {
		t.Fatalf("unexpected timings: max=%v mean=%v", got.MaxMS, got.MeanMS())
	}
	if mean := (core.OperationStats{}).MeanMS(); mean != 0 {
		t.Fatalf("expected zero mean for empty stats, got %v", mean)
	}

	published := expvar.Get(rec.Name())
	if published == nil {
		t.Fatalf("expected %s to be published", rec.Name())
	}
	if !strings.Contains(published.String(), `"generate_design"`) {
		t.Fatalf("published vars missing operation: %s", published.String())
	}

	if other := core.NewExpvarMetricsRecorder(""); other.Name() == rec.Name() {
		t.Fatalf("expected distinct generated names, both %s", rec.Name())
	}
}

func TestMultiMetricsRecorderFansOut(t *testing.T) {
	a := core.NewExpvarMetricsRecorder("")
	b := core.NewExpvarMetricsRecorder("")
	multi := core.MultiMetricsRecorder{a, nil, b}
	multi.Observe(context.Background(), "create_site", true, time.Millisecond)
	if calls := a.Snapshot()["create_site"].Calls; calls != 1 {
		t.Fatalf("first recorder calls = %d", calls)
	}
	if calls := b.Snapshot()["create_site"].Calls; calls != 1 {
		t.Fatalf("second recorder calls = %d", calls)
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := core.NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "create_plant")
	span.End(errors.New("boom"))
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected span to end once, got %d entries", len(entries))
	}
	if entries[0].Status != core.AuditStatusError || entries[0].Error != "boom" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}

	var line core.JSONTraceEntry
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if line.Operation != "create_plant" {
		t.Fatalf("unexpected operation %q", line.Operation)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := core.NewPrometheusMetricsRecorder(reg)
	svc := core.NewInMemoryService(nil, core.WithMetricsRecorder(rec))
	ctx := context.Background()

	if _, _, err := svc.CreateSite(ctx, backyard()); err != nil {
		t.Fatalf("create site: %v", err)
	}
	if _, err := svc.GetSite(ctx, "missing"); err == nil {
		t.Fatalf("expected missing site error")
	}

	for _, name := range []string{
		"gardencore_service_operations_total",
		"gardencore_service_operation_duration_seconds",
	} {
		count, err := testutil.GatherAndCount(reg, name)
		if err != nil {
			t.Fatalf("gather %s: %v", name, err)
		}
		if count != 2 {
			t.Fatalf("%s: expected 2 series, got %d", name, count)
		}
	}
}
