// Package designs renders generated designs into downloadable artifacts and
// exports them asynchronously into blob storage.
package designs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"gardencore/internal/blob"
	"gardencore/pkg/domain"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

const auditAction = "design_export"

// Artifact captures one stored design artifact.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ETag        string    `json:"etag,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportRecord tracks an export request and its resulting artifacts.
type ExportRecord struct {
	ID          string       `json:"id"`
	DesignID    string       `json:"design_id"`
	Formats     []Format     `json:"formats"`
	Status      ExportStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Artifacts   []Artifact   `json:"artifacts,omitempty"`
	RequestedBy string       `json:"requested_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	DesignID    string
	Formats     []Format
	RequestedBy string
}

// DesignSource resolves persisted design records. core.Service satisfies it.
type DesignSource interface {
	GetDesign(ctx context.Context, id string) (domain.DesignRecord, error)
}

// ExportScheduler queues design exports and exposes their status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// ErrQueueFull is returned when the worker cannot accept more requests.
var ErrQueueFull = errors.New("export queue full")

// Worker executes design exports asynchronously.
type Worker struct {
	designs DesignSource
	store   blob.Store
	audit   AuditLogger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs an export worker. A nil audit logger disables auditing.
func NewWorker(designs DesignSource, store blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		designs: designs,
		store:   store,
		audit:   audit,
		queue:   make(chan string, 32),
		jobs:    make(map[string]*ExportRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// EnqueueExport validates the request, records it as queued and schedules it.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.designs == nil || w.store == nil {
		return ExportRecord{}, fmt.Errorf("export worker not configured")
	}
	if _, err := w.designs.GetDesign(ctx, input.DesignID); err != nil {
		return ExportRecord{}, err
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = Formats
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, raw := range formats {
		format, err := ParseFormat(string(raw))
		if err != nil {
			return ExportRecord{}, err
		}
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	now := time.Now().UTC()
	record := ExportRecord{
		ID:          uuid.NewString(),
		DesignID:    input.DesignID,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = &record
	queued := record.copy()
	w.mu.Unlock()
	w.record(ctx, record.ID, ExportStatusQueued, nil, now)

	select {
	case w.queue <- record.ID:
	default:
		w.mu.Lock()
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		return ExportRecord{}, ErrQueueFull
	}
	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(id string) {
	queued, ok := w.GetExport(id)
	if !ok {
		return
	}
	w.updateStatus(id, ExportStatusRunning)

	rec, err := w.designs.GetDesign(w.ctx, queued.DesignID)
	if err != nil {
		w.fail(id, fmt.Sprintf("load design: %v", err))
		return
	}

	artifacts := make([]Artifact, 0, len(queued.Formats))
	for _, format := range queued.Formats {
		artifact, err := w.export(rec, format)
		if err != nil {
			w.fail(id, err.Error())
			return
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(id, artifacts)
}

// ArtifactKey returns the blob key an export of rec in format is written to.
func ArtifactKey(rec domain.DesignRecord, format Format) string {
	return path.Join("designs", rec.ID, rec.FileStem()+"."+string(format))
}

func (w *Worker) export(rec domain.DesignRecord, format Format) (Artifact, error) {
	payload, err := Render(format, rec)
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	key := ArtifactKey(rec, format)
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: format.ContentType(),
		Metadata: map[string]string{
			"design_id": rec.ID,
			"site_id":   rec.SiteID,
			"format":    string(format),
		},
		Overwrite: true,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("store artifact %s: %w", key, err)
	}
	url := info.URL
	if url == "" {
		if signed, err := w.store.PresignURL(w.ctx, key, blob.SignedURLOptions{}); err == nil {
			url = signed
		}
	}
	return Artifact{
		Key:         info.Key,
		Format:      format,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		ETag:        info.ETag,
		URL:         url,
		CreatedAt:   info.LastModified,
	}, nil
}

func (w *Worker) updateStatus(id string, status ExportStatus) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = ""
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, status, nil, now)
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, ExportStatusSucceeded, map[string]string{"artifacts": fmt.Sprint(len(artifacts))}, now)
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, ExportStatusFailed, map[string]string{"error": reason}, now)
}

func (w *Worker) record(ctx context.Context, id string, status ExportStatus, metadata map[string]string, at time.Time) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	var actor, design string
	if record, ok := w.jobs[id]; ok {
		actor, design = record.RequestedBy, record.DesignID
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		ExportID:   id,
		Action:     auditAction,
		Actor:      actor,
		DesignID:   design,
		Status:     status,
		Metadata:   metadata,
		OccurredAt: at,
	})
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		dup.CompletedAt = &at
	}
	return dup
}
