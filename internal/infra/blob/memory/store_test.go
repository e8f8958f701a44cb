package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gardencore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	s := New()
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	info, err := s.Put(ctx, "designs/d1/design.csv", bytes.NewReader([]byte("a,b\n")), core.PutOptions{Metadata: map[string]string{"site": "s1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ContentType != "text/csv; charset=utf-8" || info.Size != 4 || !info.LastModified.Equal(fixed) {
		t.Fatalf("unexpected info %#v", info)
	}
	if info.ETag != core.ETag([]byte("a,b\n")) {
		t.Fatalf("etag mismatch: %s", info.ETag)
	}
	if _, err := s.Put(ctx, "designs/d1/design.csv", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "designs/d1/design.csv", bytes.NewReader([]byte("x")), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	_, rc, err := s.Get(ctx, "designs/d1/design.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "x" {
		t.Fatalf("expected overwritten body, got %q", body)
	}

	head, err := s.Head(ctx, "designs/d1/design.csv")
	if err != nil || head.Metadata != nil {
		t.Fatalf("overwrite without metadata should clear it: %#v %v", head, err)
	}

	if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "../escape", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}

	ok, err := s.Delete(ctx, "designs/d1/design.csv")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "designs/d1/design.csv"); ok {
		t.Fatalf("second delete should report false")
	}
	if _, err := s.PresignURL(ctx, "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign")
	}
}

func TestListOrdersByKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []string{"designs/b/x.png", "designs/a/x.png", "other/c.json"} {
		if _, err := s.Put(ctx, k, bytes.NewReader([]byte(k)), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := s.List(ctx, "designs/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "designs/a/x.png" || list[1].Key != "designs/b/x.png" {
		t.Fatalf("unexpected list %#v", list)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 blobs, got %d", len(all))
	}
}
