// Package s3 stores blobs in a single S3 or MinIO bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gardencore/internal/blob/core"
)

// DefaultRegion is used when Config.Region is empty.
const DefaultRegion = "us-east-1"

// DefaultPresignExpiry bounds presigned URLs when the caller gives no expiry.
const DefaultPresignExpiry = 15 * time.Minute

// Store implements core.Store on one bucket. Keys are stored under an
// optional prefix so several deployments can share a bucket.
type Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	presign *s3.PresignClient
}

// Config holds explicit construction parameters.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string // optional key prefix, e.g. "gardencore/"
	Endpoint        string // optional; enables a custom endpoint such as MinIO
	AccessKeyID     string // optional; the default credential chain applies when empty
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// New creates an S3 blob store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg.Bucket, cfg.Prefix), nil
}

func newStore(client *s3.Client, bucket, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix, presign: s3.NewPresignClient(client)}
}

// OpenFromEnv constructs an S3 store from process environment:
//
//	GARDENCORE_BLOB_S3_BUCKET=<bucket> (required)
//	GARDENCORE_BLOB_S3_REGION=<region> (default us-east-1)
//	GARDENCORE_BLOB_S3_ENDPOINT=<url> (optional, for MinIO)
//	GARDENCORE_BLOB_S3_PATH_STYLE=true|false (default false)
//	GARDENCORE_BLOB_S3_PREFIX=<prefix> (optional)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("GARDENCORE_BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("GARDENCORE_BLOB_S3_BUCKET required for s3 driver")
	}
	return New(ctx, Config{
		Bucket:    bucket,
		Region:    os.Getenv("GARDENCORE_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("GARDENCORE_BLOB_S3_ENDPOINT"),
		Prefix:    os.Getenv("GARDENCORE_BLOB_S3_PREFIX"),
		PathStyle: strings.EqualFold(os.Getenv("GARDENCORE_BLOB_S3_PATH_STYLE"), "true"),
	})
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

func (s *Store) objectKey(key string) (clean, object string, err error) {
	clean, err = core.CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return clean, s.prefix + clean, nil
}

// Put uploads the blob. Without Overwrite it checks with HeadObject first;
// the check is not atomic with the upload.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	key, object, err := s.objectKey(key)
	if err != nil {
		return core.Info{}, err
	}
	if !opts.Overwrite {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &object})
		switch {
		case err == nil:
			return core.Info{}, fmt.Errorf("%w: %s", core.ErrExists, key)
		case !isNotFound(err):
			return core.Info{}, err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	input := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &object,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(opts.ResolveContentType(key)),
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = core.CloneMetadata(opts.Metadata)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.Info{}, err
	}
	return s.Head(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	key, object, err := s.objectKey(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &object})
	if err != nil {
		return core.Info{}, nil, s.mapErr(key, err)
	}
	info := fromHead(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified)
	return info, out.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	key, object, err := s.objectKey(key)
	if err != nil {
		return core.Info{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &object})
	if err != nil {
		return core.Info{}, s.mapErr(key, err)
	}
	return fromHead(key, aws.ToInt64(out.ContentLength), out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

// Delete reports whether the object existed; S3 deletes are idempotent so
// existence is checked with HeadObject first.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	key, object, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &object}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &object}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	full := s.prefix + prefix
	var infos []core.Info
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &full})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			infos = append(infos, core.Info{
				Key:          strings.TrimPrefix(aws.ToString(obj.Key), s.prefix),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), "\""),
				ContentType:  core.ContentTypeFor(aws.ToString(obj.Key)),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Store) PresignURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	_, object, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &object}, func(po *s3.PresignOptions) { po.Expires = expiry })
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (s *Store) mapErr(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return err
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == 404
}

func fromHead(key string, size int64, contentType, etag *string, md map[string]string, lastModified *time.Time) core.Info {
	info := core.Info{
		Key:         key,
		Size:        size,
		ContentType: aws.ToString(contentType),
		ETag:        strings.Trim(aws.ToString(etag), "\""),
		Metadata:    core.CloneMetadata(md),
	}
	if len(info.Metadata) == 0 {
		info.Metadata = nil
	}
	if lastModified != nil {
		info.LastModified = lastModified.UTC()
	}
	return info
}
