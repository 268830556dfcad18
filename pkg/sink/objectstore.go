// Package sink provides the two durable stores the pipeline writes to:
// an S3-compatible object store for artifacts and exports, and a
// PostgreSQL warehouse for canonical rows. The ordering contract between
// them (artifact before the row referencing it) is enforced by the
// pipeline, not here; each writer is independently idempotent.
package sink

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/models"
)

// ObjectStore writes artifacts and run exports to an S3-compatible
// store. Object keys are deterministic, so rewriting the same artifact
// overwrites rather than duplicates.
type ObjectStore struct {
	client       *s3.Client
	imagesBucket string
	exportBucket string
	logger       *zap.Logger
}

// NewObjectStore creates an object store client and ensures both buckets
// exist. A non-empty endpoint switches the client to path-style
// addressing for MinIO and other S3-compatible stores.
func NewObjectStore(ctx context.Context, cfg config.ObjectStoreConfig, logger *zap.Logger) (*ObjectStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load object store configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := endpointURL(cfg); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	store := &ObjectStore{
		client:       client,
		imagesBucket: cfg.ImagesBucket,
		exportBucket: cfg.ExportBucket,
		logger:       logger.With(zap.String("sink", "object_store")),
	}

	for _, bucket := range []string{cfg.ImagesBucket, cfg.ExportBucket} {
		if err := store.ensureBucket(ctx, bucket); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// PutArtifact uploads a row artifact under its deterministic key and
// returns the reference string to embed in the row.
func (o *ObjectStore) PutArtifact(ctx context.Context, artifact *models.Artifact) (string, error) {
	return o.put(ctx, o.imagesBucket, artifact.Key, artifact.ContentType, artifact.Body)
}

// PutExport uploads a run export (CSV or JSON) to the export bucket.
func (o *ObjectStore) PutExport(ctx context.Context, key, contentType string, body []byte) (string, error) {
	return o.put(ctx, o.exportBucket, key, contentType, body)
}

// DeleteArtifacts removes every artifact under the given key prefix,
// returning the number deleted. Used by the erasure procedure only.
func (o *ObjectStore) DeleteArtifacts(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	paginator := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.imagesBucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list artifacts").WithDetail("prefix", prefix)
		}
		for _, obj := range page.Contents {
			_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(o.imagesBucket),
				Key:    obj.Key,
			})
			if err != nil {
				return deleted, errors.Wrap(err, errors.ErrorTypeConnection, "failed to delete artifact").WithDetail("key", aws.ToString(obj.Key))
			}
			deleted++
		}
	}
	o.logger.Info("artifacts deleted", zap.String("prefix", prefix), zap.Int("count", deleted))
	return deleted, nil
}

// endpointURL resolves the custom endpoint, if any. A bare host:port
// (MinIO-style configuration) gets its scheme from UseSSL; an endpoint
// that already carries a scheme wins over the flag.
func endpointURL(cfg config.ObjectStoreConfig) string {
	if cfg.Endpoint == "" {
		return ""
	}
	if strings.Contains(cfg.Endpoint, "://") {
		return cfg.Endpoint
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

func (o *ObjectStore) put(ctx context.Context, bucket, key, contentType string, body []byte) (string, error) {
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload object").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

// ensureBucket creates the bucket when it does not exist yet. Ownership
// conflicts with a previous run of the same deployment are not errors.
func (o *ObjectStore) ensureBucket(ctx context.Context, bucket string) error {
	_, err := o.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	_, err = o.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if stderrors.As(err, &owned) || stderrors.As(err, &exists) {
			return nil
		}
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create bucket").WithDetail("bucket", bucket)
	}
	o.logger.Info("bucket created", zap.String("bucket", bucket))
	return nil
}
