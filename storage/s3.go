package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket string
	Region string

	// Endpoint overrides the S3 endpoint, for MinIO and tests.
	Endpoint string

	// Prefix is prepended to every object key.
	Prefix string
}

func NewDefaultS3Config() *S3Config {
	return &S3Config{
		Region: "us-east-1",
	}
}

// PutObjectAPI is the subset of the S3 client used by [S3].
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ Store = (*S3)(nil)

// S3 is a [Store] that uploads every file as an object once it is closed.
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3 returns a [S3] using the given client.
func NewS3(client PutObjectAPI, bucket, prefix string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewS3FromConfig loads the default AWS configuration and returns a [S3].
func NewS3FromConfig(ctx context.Context, cfg *S3Config) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}

	opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewS3(s3.NewFromConfig(awsCfg, opts...), cfg.Bucket, cfg.Prefix), nil
}

func (s *S3) key(name string) string {
	key := strings.TrimPrefix(name, "/")
	if s.prefix != "" {
		key = strings.TrimSuffix(s.prefix, "/") + "/" + key
	}
	return key
}

func (s *S3) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	return &s3Object{
		ctx:   ctx,
		store: s,
		key:   s.key(name),
	}, nil
}

// s3Object buffers the file in memory until it is closed.
type s3Object struct {
	bytes.Buffer

	ctx   context.Context
	store *S3
	key   string
}

func (o *s3Object) Close() error {
	_, err := o.store.client.PutObject(o.ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.store.bucket),
		Key:    aws.String(o.key),
		Body:   bytes.NewReader(o.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("storage: uploading %s: %w", o.key, err)
	}

	return nil
}

func (o *s3Object) Abort() error {
	o.Reset()
	return nil
}
