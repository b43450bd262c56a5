// Package archive is an optional, write-only disaster-recovery mirror of
// cold-tier blobs to an S3-compatible bucket. It is never read from by the
// download path — restoring from it is a manual operator action. Disabled
// by default. No vaultfs component opens a Mirror: the lifecycle migration
// worker does not copy the blobs it moves to cold storage into the bucket,
// and no delete path removes blobs from it.
package archive

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/config"
)

// Mirror writes cold-tier blobs to an S3-compatible bucket.
type Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

// Open constructs a Mirror from cfg. Returns (nil, nil) if the mirror is
// disabled, so callers can treat a nil *Mirror as a no-op.
func Open(ctx context.Context, cfg config.ArchiveConfig) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.CodeStorageError, "failed to load archive mirror AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Mirror{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (m *Mirror) key(storageKey string) string {
	return m.prefix + storageKey
}

// Put copies a cold-tier blob's bytes into the mirror. A nil Mirror is a
// no-op, so callers don't need to branch on whether archiving is enabled.
func (m *Mirror) Put(ctx context.Context, storageKey string, data []byte) error {
	if m == nil {
		return nil
	}
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(storageKey)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "archive mirror put failed", err)
	}
	return nil
}

// Delete removes a blob from the mirror. A nil Mirror is a no-op.
func (m *Mirror) Delete(ctx context.Context, storageKey string) error {
	if m == nil {
		return nil
	}
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(storageKey)),
	})
	if err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "archive mirror delete failed", err)
	}
	return nil
}

// HealthCheck verifies the configured bucket is reachable. A nil Mirror
// always reports healthy.
func (m *Mirror) HealthCheck(ctx context.Context) error {
	if m == nil {
		return nil
	}
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(m.bucket)})
	if err != nil {
		return cerrors.Wrap(cerrors.CodeStorageError, "archive mirror unreachable", err)
	}
	return nil
}
