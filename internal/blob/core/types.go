// Package core defines the artifact storage contract shared by the blob
// backends.
package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // inferred from the key extension when empty
	Metadata    map[string]string // small, flat key-value
	Overwrite   bool              // replace an existing blob instead of failing with ErrExists
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Method  string        // only GET is supported
	Expiry  time.Duration // default 15m
	Headers map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is the S3-shaped surface design artifacts are written through.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns ErrNotFound when the key is absent. Callers close the reader.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether the blob existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blobstore: unsupported operation")
	// ErrNotFound is returned by Get and Head for absent keys.
	ErrNotFound = errors.New("blobstore: not found")
	// ErrExists is returned by Put when the key is taken and Overwrite is false.
	ErrExists = errors.New("blobstore: already exists")
	// ErrInvalidKey is returned for empty, absolute or traversing keys.
	ErrInvalidKey = errors.New("blobstore: invalid key")
)

// CleanKey validates key and returns it in slash-separated canonical form.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	key = strings.ReplaceAll(key, "\\", "/")
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %s is absolute", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %s escapes the store", ErrInvalidKey, key)
		}
	}
	return path.Clean(key), nil
}

var artifactTypes = map[string]string{
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".csv":  "text/csv; charset=utf-8",
	".html": "text/html; charset=utf-8",
	".png":  "image/png",
	".txt":  "text/plain; charset=utf-8",
}

// ContentTypeFor returns the MIME type for a key's extension, defaulting to
// application/octet-stream.
func ContentTypeFor(key string) string {
	if ct, ok := artifactTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ResolveContentType prefers an explicit content type over the inferred one.
func (o PutOptions) ResolveContentType(key string) string {
	if o.ContentType != "" {
		return o.ContentType
	}
	return ContentTypeFor(key)
}

// ETag is the hex sha256 of data, used by backends that compute their own tags.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CloneMetadata copies a metadata map, preserving nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
