package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOOptions configures an S3-compatible bucket.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// SpoolDir holds payloads while their digest is computed. Empty uses os.TempDir.
	SpoolDir string
}

// MinIO stores blob bytes as objects in one bucket.
type MinIO struct {
	client   *minio.Client
	bucket   string
	spoolDir string
}

// NewMinIO connects to the endpoint and creates the bucket if it is missing.
func NewMinIO(ctx context.Context, opts MinIOOptions) (*MinIO, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	spoolDir := opts.SpoolDir
	if spoolDir == "" {
		spoolDir = os.TempDir()
	}
	return &MinIO{client: client, bucket: opts.Bucket, spoolDir: spoolDir}, nil
}

// Put uploads the payload under its digest unless an object already exists there.
func (m *MinIO) Put(ctx context.Context, r io.Reader, opts PutOptions) (BlobPutResult, error) {
	var zero BlobPutResult
	if m == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}

	sp, err := spool(ctx, m.spoolDir, r)
	if err != nil {
		return zero, err
	}
	defer sp.discard()

	if _, err := m.client.StatObject(ctx, m.bucket, sp.key(), minio.StatObjectOptions{}); err == nil {
		return sp.result(), nil
	} else if !isNoSuchKey(err) {
		return zero, err
	}

	if err := sp.rewind(); err != nil {
		return zero, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := m.client.PutObject(ctx, m.bucket, sp.key(), sp.file, sp.size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return zero, fmt.Errorf("upload %s: %w", sp.key(), err)
	}
	return sp.result(), nil
}

// Open returns a reader for the object stored under key.
func (m *MinIO) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if m == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return obj, nil
}

// Delete removes the object under key. Missing objects are ignored.
func (m *MinIO) Delete(ctx context.Context, key string) error {
	if m == nil {
		return fmt.Errorf("blob store is not configured")
	}
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return err
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
