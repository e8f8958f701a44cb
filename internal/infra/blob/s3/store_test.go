package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"gardencore/internal/blob/core"
)

func newMockStore(t *testing.T, prefix string, pageSize int) (*Store, *mockTransport) {
	t.Helper()
	rt := &mockTransport{objects: make(map[string]mockObject), pageSize: pageSize}
	return newStore(newMockClient(rt), "test-bucket", prefix), rt
}

func TestStoreBasicFlow(t *testing.T) {
	store, rt := newMockStore(t, "gardencore", 0)
	ctx := context.Background()
	key := "designs/r1/design_lot_20240101000000.csv"

	info, err := store.Put(ctx, key, bytes.NewReader([]byte("zone,plant\n")), core.PutOptions{Metadata: map[string]string{"format": "csv"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != key || info.ContentType != "text/csv; charset=utf-8" || info.Size != 11 {
		t.Fatalf("unexpected info %#v", info)
	}
	if info.Metadata["format"] != "csv" || info.ETag != core.ETag([]byte("zone,plant\n")) {
		t.Fatalf("unexpected head fields %#v", info)
	}
	if _, ok := rt.objects["gardencore/"+key]; !ok {
		t.Fatalf("object not stored under prefix: %v", rt.objects)
	}

	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("zone\n")), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	_, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "zone\n" {
		t.Fatalf("get mismatch: %q", data)
	}

	list, err := store.List(ctx, "designs/")
	if err != nil || len(list) != 1 || list[0].Key != key {
		t.Fatalf("list: %v %+v", err, list)
	}

	url, err := store.PresignURL(ctx, key, core.SignedURLOptions{Expiry: time.Minute})
	if err != nil || !strings.Contains(url, "gardencore/designs/r1") {
		t.Fatalf("presign: %v %s", err, url)
	}

	if ok, err := store.Delete(ctx, key); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, key); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestMockHeadersAreCanonical(t *testing.T) {
	body := []byte("{}")
	h := objectHeaders(mockObject{body: body, contentType: "application/json"})
	for _, name := range []string{"Etag", "Content-Length", "Content-Type", "Last-Modified"} {
		if _, ok := h[name]; !ok {
			t.Fatalf("header %s not stored under its canonical key: %v", name, h)
		}
	}
	if h.Get("ETag") != strconv.Quote(core.ETag(body)) {
		t.Fatalf("unexpected etag %q", h.Get("ETag"))
	}
}

func TestStoreNotFound(t *testing.T) {
	store, _ := newMockStore(t, "", 0)
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head: expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{Method: http.MethodPut}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign, got %v", err)
	}
	if _, err := store.Put(ctx, "../k", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestStoreListPaginates(t *testing.T) {
	store, _ := newMockStore(t, "", 2)
	ctx := context.Background()
	for _, k := range []string{"d/c.png", "d/a.png", "d/b.png", "d/e.png", "x.json"} {
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte(k)), core.PutOptions{Overwrite: true}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := store.List(ctx, "d/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var keys []string
	for _, info := range list {
		keys = append(keys, info.Key)
	}
	if strings.Join(keys, ",") != "d/a.png,d/b.png,d/c.png,d/e.png" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if list[0].ContentType != "image/png" {
		t.Fatalf("expected inferred content type, got %s", list[0].ContentType)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	s, err := New(context.Background(), Config{
		Bucket:          "bkt",
		Prefix:          "p",
		Endpoint:        "https://minio.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverS3 || s.prefix != "p/" {
		t.Fatalf("unexpected store %#v", s)
	}
}

func TestOpenFromEnv(t *testing.T) {
	t.Setenv("GARDENCORE_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	t.Setenv("GARDENCORE_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("GARDENCORE_BLOB_S3_REGION", "eu-west-1")
	t.Setenv("GARDENCORE_BLOB_S3_PATH_STYLE", "TRUE")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	s, err := OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
	if s.bucket != "env-bucket" {
		t.Fatalf("unexpected bucket %s", s.bucket)
	}
}

func TestDecodeChunked(t *testing.T) {
	if _, ok := decodeChunked([]byte("not-chunked")); ok {
		t.Fatalf("plain payload should not decode")
	}
	if _, ok := decodeChunked([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatalf("size mismatch should fail")
	}
	if b, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("expected decode hello")
	}
}

func TestMockUnsupportedMethod(t *testing.T) {
	rt := &mockTransport{objects: make(map[string]mockObject)}
	req, _ := http.NewRequest(http.MethodPatch, "https://mock.s3.local/bucket/key", nil)
	resp, _ := rt.RoundTrip(req)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}
