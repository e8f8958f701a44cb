package blob

import (
	"context"

	infraS3 "gardencore/internal/infra/blob/s3"
)

// S3Config configures the S3 backend.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
//
//	GARDENCORE_BLOB_S3_BUCKET (required), GARDENCORE_BLOB_S3_REGION,
//	GARDENCORE_BLOB_S3_ENDPOINT, GARDENCORE_BLOB_S3_PATH_STYLE,
//	GARDENCORE_BLOB_S3_PREFIX
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// OpenFromEnv constructs an S3 store using environment variables.
func OpenFromEnv(ctx context.Context) (Store, error) {
	return infraS3.OpenFromEnv(ctx)
}

// NewMockS3ForTests exposes the in-memory S3 fake for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
