package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// OperationStats aggregates one operation's outcomes.
type OperationStats struct {
	Calls   int64   `json:"calls"`
	Errors  int64   `json:"errors"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// MeanMS is the average latency in milliseconds, zero before the first call.
func (s OperationStats) MeanMS() float64 {
	if s.Calls == 0 {
		return 0
	}
	return s.TotalMS / float64(s.Calls)
}

// ExpvarMetricsRecorder publishes per-operation stats under /debug/vars.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]OperationStats
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated unique name when empty. expvar panics on duplicate names, so
// callers that construct several recorders leave name empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("gardencore_service_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current stats keyed by operation.
func (r *ExpvarMetricsRecorder) Snapshot() map[string]OperationStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OperationStats, len(r.ops))
	for op, stats := range r.ops {
		out[op] = stats
	}
	return out
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	stats := r.ops[operation]
	stats.Calls++
	if !success {
		stats.Errors++
	}
	stats.TotalMS += ms
	stats.MaxMS = max(stats.MaxMS, ms)
	r.ops[operation] = stats
	r.mu.Unlock()
}

// MultiMetricsRecorder fans observations out to several recorders.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, rec := range m {
		if rec != nil {
			rec.Observe(ctx, operation, success, duration)
		}
	}
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string      `json:"operation"`
	Status     AuditStatus `json:"status"`
	DurationMS float64     `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	EndedAt    time.Time   `json:"ended_at"`
}

// JSONTraceTracer writes finished spans as JSON lines and keeps the most
// recent ones in memory.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	limit   int
	enc     *json.Encoder
	clock   Clock
}

// DefaultTraceRetention bounds how many spans a JSONTraceTracer keeps.
const DefaultTraceRetention = 1024

// NewJSONTracer writes spans to w, which may be nil.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{limit: DefaultTraceRetention, clock: ClockFunc(nil)}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the retained spans, oldest first.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
	once      sync.Once
}

func (s *jsonTraceSpan) End(err error) {
	s.once.Do(func() { s.tracer.finish(s, err) })
}

func (t *JSONTraceTracer) finish(s *jsonTraceSpan, err error) {
	ended := t.clock.Now()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     AuditStatusSuccess,
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if over := len(t.entries) - t.limit; over > 0 {
		t.entries = append(t.entries[:0:0], t.entries[over:]...)
	}
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}
