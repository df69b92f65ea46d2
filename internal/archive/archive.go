// Package archive keeps a copy of every generated export in S3-compatible
// object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/shared"
)

// Swappable for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads CSV files under prefix/YYYY/MM/DD/filename.
type S3Archiver struct {
	bucket string
	prefix string
	client objectPutter
	logger *log.Logger
}

// NewS3Archiver builds a client from cfg. Static keys are used when both
// are set; otherwise the default AWS credential chain applies. A custom
// endpoint (MinIO and friends) switches to path-style addressing.
func NewS3Archiver(ctx context.Context, cfg shared.ArchiveConfig, logger *log.Logger) (*S3Archiver, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: archive bucket is not set", shared.ErrMissingConfig)
	}
	if logger == nil {
		logger = log.Default()
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", shared.ErrInvalidConfig, err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		client: client,
		logger: shared.WithLogger(logger, "component", "archive", "bucket", cfg.Bucket),
	}, nil
}

// Key returns the object key for filename generated at.
func (a *S3Archiver) Key(filename string, at time.Time) string {
	at = at.UTC()
	return path.Join(a.prefix, fmt.Sprintf("%04d/%02d/%02d", at.Year(), at.Month(), at.Day()), filename)
}

// Archive uploads data and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, filename string, data []byte, at time.Time) (string, error) {
	key := a.Key(filename, at)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/csv; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: uploading %s: %v", shared.ErrConnection, key, err)
	}

	a.logger.Info("archived export", "key", key, "bytes", len(data))
	return key, nil
}
