package designs

import (
	"context"
	"sync"
	"time"
)

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures one export status transition.
type AuditEntry struct {
	ID         string            `json:"id"`
	ExportID   string            `json:"export_id"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor,omitempty"`
	DesignID   string            `json:"design_id"`
	Status     ExportStatus      `json:"status"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// MemoryAuditLog stores audit entries in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditLog constructs an empty audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

// Record appends an entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries in arrival order.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
