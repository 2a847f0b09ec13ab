package search

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/util/compression"
)

// PutObjectAPI is the part of the S3 client the exporter uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads corpus snapshots to an S3-compatible bucket.
type S3Exporter struct {
	client     PutObjectAPI
	bucket     string
	key        string
	compressor compression.Compressor
}

// NewS3Client builds a client for cfg. A custom endpoint (R2, MinIO) is used
// when set; otherwise the region's AWS endpoint applies.
func NewS3Client(ctx context.Context, cfg config.ExportConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load S3 configuration")
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Exporter(client PutObjectAPI, cfg config.ExportConfig) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("export bucket is not configured")
	}

	e := &S3Exporter{client: client, bucket: cfg.Bucket, key: cfg.Key}
	if cfg.Compress != "" {
		c, err := compression.ByName(cfg.Compress)
		if err != nil {
			return nil, err
		}
		e.compressor = c
	}
	return e, nil
}

// Upload writes corpus and returns the object key it was stored under.
func (e *S3Exporter) Upload(ctx context.Context, corpus Corpus) (string, error) {
	body, err := json.Marshal(corpus)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode search data")
	}

	input := &s3.PutObjectInput{
		Bucket:       aws.String(e.bucket),
		Key:          aws.String(e.key),
		ContentType:  aws.String(config.CTypeJSON),
		CacheControl: aws.String("max-age=300"),
	}
	if e.compressor != nil {
		body, err = e.compressor.Compress(body)
		if err != nil {
			return "", errors.Wrap(err, "failed to compress search data")
		}
		input.Key = aws.String(e.key + e.compressor.Extension())
		input.ContentEncoding = aws.String(e.compressor.Encoding())
	}
	input.Body = bytes.NewReader(body)

	if _, err := e.client.PutObject(ctx, input); err != nil {
		return "", errors.Wrapf(err, "failed to upload s3://%s/%s", e.bucket, aws.ToString(input.Key))
	}

	searchLogger.Info().
		Str("bucket", e.bucket).
		Str("key", aws.ToString(input.Key)).
		Int("bytes", len(body)).
		Msg("Search data uploaded")
	return aws.ToString(input.Key), nil
}
