// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Archiver keeps a copy of each coverage report in an S3-compatible
// bucket under <prefix>/<run-id>/<file>.
type S3Archiver struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	initOnce sync.Once
	initErr  error
}

// NewS3Archiver validates cfg and builds a minio client.
func NewS3Archiver(cfg ArchiveConfig) (*S3Archiver, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("archive access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	region := orDefault(strings.TrimSpace(cfg.Region), "us-east-1")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Archiver{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Name implements Reporter.
func (a *S3Archiver) Name() string { return "s3-archive" }

// Upload implements Reporter.
func (a *S3Archiver) Upload(ctx context.Context, u Upload) error {
	if strings.TrimSpace(u.RunID) == "" {
		return fmt.Errorf("run id is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	key := a.objectKey(u.RunID, filepath.Base(u.Artifact.Path))
	_, err := a.client.FPutObject(ctx, a.bucket, key, u.Artifact.Path, minio.PutObjectOptions{
		ContentType: "application/xml",
		UserMetadata: map[string]string{
			"commit":  u.Commit,
			"branch":  u.Branch,
			"percent": fmt.Sprintf("%.2f", u.Artifact.Percent),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUploadFailed, key, err)
	}
	logf("report: archived to s3://%s/%s", a.bucket, key)
	return nil
}

func (a *S3Archiver) ensureBucket(ctx context.Context) error {
	a.initOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.initErr = err
			return
		}
		if exists {
			return
		}
		a.initErr = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region})
	})
	return a.initErr
}

func (a *S3Archiver) objectKey(runID, name string) string {
	if a.prefix == "" {
		return path.Join(runID, name)
	}
	return path.Join(a.prefix, runID, name)
}
