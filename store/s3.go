//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoETL.
//
// GoETL is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoETL is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoETL. If not, see https://www.gnu.org/licenses/.

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/c2h5oh/datasize"
	"github.com/hashicorp/go-hclog"
)

var (
	// ErrObjectNotFound is returned when the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectTooLarge is returned when an object exceeds the configured maximum size.
	ErrObjectTooLarge = errors.New("object too large")
	// ErrNotUTF8 is returned when an object body is not valid UTF-8 text.
	ErrNotUTF8 = errors.New("object body is not valid UTF-8")
)

// DefaultMaxObjectSize bounds how much of an object is held in memory.
const DefaultMaxObjectSize = 512 * datasize.MB

// S3StoreError represents errors that occur during S3 operations.
type S3StoreError struct {
	Op     string // Operation that failed (e.g., "get_object", "put_object", "read_body")
	Bucket string
	Key    string
	Err    error // Underlying error
}

func (e *S3StoreError) Error() string {
	return fmt.Sprintf("s3 store %s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *S3StoreError) Unwrap() error {
	return e.Err
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3StoreStats holds S3 transfer statistics.
type S3StoreStats struct {
	ObjectsRead    int64
	ObjectsWritten int64
	BytesRead      int64
	BytesWritten   int64
	ReadDuration   time.Duration
	WriteDuration  time.Duration
}

// S3StoreOptions configures the S3 store.
type S3StoreOptions struct {
	Region         string            // AWS region
	Profile        string            // AWS profile to use
	Credentials    aws.Credentials   // Explicit credentials
	EndpointURL    string            // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool              // Use path-style addressing
	MaxObjectSize  datasize.ByteSize // Largest object Fetch accepts; 0 means no limit
	ContentType    string            // Content type of stored objects
	Client         S3API             // Preconfigured client; skips AWS config loading
	Logger         hclog.Logger
}

// StoreOptionS3 is a functional option.
type StoreOptionS3 func(*S3StoreOptions)

func WithS3Region(region string) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.Region = region
	}
}

func WithS3Profile(profile string) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.Profile = profile
	}
}

func WithS3Credentials(creds aws.Credentials) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.Credentials = creds
	}
}

func WithS3Endpoint(endpoint string) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.EndpointURL = endpoint
	}
}

func WithS3PathStyle(pathStyle bool) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.ForcePathStyle = pathStyle
	}
}

func WithS3MaxObjectSize(size datasize.ByteSize) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.MaxObjectSize = size
	}
}

func WithS3ContentType(contentType string) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.ContentType = contentType
	}
}

// WithS3Client uses client instead of building one from the AWS configuration.
func WithS3Client(client S3API) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.Client = client
	}
}

func WithS3Logger(logger hclog.Logger) StoreOptionS3 {
	return func(opts *S3StoreOptions) {
		opts.Logger = logger
	}
}

// S3Store implements core.ObjectStore on Amazon S3 or an S3-compatible service.
type S3Store struct {
	client S3API
	opts   S3StoreOptions
	logger hclog.Logger
	stats  S3StoreStats
	mu     sync.RWMutex
}

// NewS3Store creates a new S3 store.
func NewS3Store(options ...StoreOptionS3) (*S3Store, error) {
	opts := S3StoreOptions{
		MaxObjectSize: DefaultMaxObjectSize,
		ContentType:   "text/csv",
	}

	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	client := opts.Client
	if client == nil {
		cfg, err := createAWSConfig(opts)
		if err != nil {
			return nil, &S3StoreError{Op: "create_aws_config", Err: err}
		}

		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.EndpointURL != "" {
				o.BaseEndpoint = aws.String(opts.EndpointURL)
			}
			o.UsePathStyle = opts.ForcePathStyle
		})
	}

	return &S3Store{
		client: client,
		opts:   opts,
		logger: logger,
	}, nil
}

// Fetch implements core.ObjectStore. The body is returned as UTF-8 text.
func (s *S3Store) Fetch(ctx context.Context, bucket, key string) (string, error) {
	start := time.Now()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			err = fmt.Errorf("%w: %v", ErrObjectNotFound, err)
		}
		return "", &S3StoreError{Op: "get_object", Bucket: bucket, Key: key, Err: err}
	}
	defer result.Body.Close()

	limit := int64(s.opts.MaxObjectSize.Bytes())
	if limit > 0 && result.ContentLength != nil && *result.ContentLength > limit {
		return "", &S3StoreError{Op: "get_object", Bucket: bucket, Key: key,
			Err: fmt.Errorf("%w: %d bytes exceeds %s", ErrObjectTooLarge, *result.ContentLength, s.opts.MaxObjectSize.HR())}
	}

	var body io.Reader = result.Body
	if limit > 0 {
		body = io.LimitReader(result.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", &S3StoreError{Op: "read_body", Bucket: bucket, Key: key, Err: err}
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", &S3StoreError{Op: "read_body", Bucket: bucket, Key: key,
			Err: fmt.Errorf("%w: exceeds %s", ErrObjectTooLarge, s.opts.MaxObjectSize.HR())}
	}
	if !utf8.Valid(data) {
		return "", &S3StoreError{Op: "read_body", Bucket: bucket, Key: key, Err: ErrNotUTF8}
	}

	s.mu.Lock()
	s.stats.ObjectsRead++
	s.stats.BytesRead += int64(len(data))
	s.stats.ReadDuration += time.Since(start)
	s.mu.Unlock()

	s.logger.Debug("fetched object", "bucket", bucket, "key", key, "bytes", len(data))
	return string(data), nil
}

// Store implements core.ObjectStore.
func (s *S3Store) Store(ctx context.Context, bucket, key string, body []byte) error {
	start := time.Now()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(s.opts.ContentType),
	})
	if err != nil {
		return &S3StoreError{Op: "put_object", Bucket: bucket, Key: key, Err: err}
	}

	s.mu.Lock()
	s.stats.ObjectsWritten++
	s.stats.BytesWritten += int64(len(body))
	s.stats.WriteDuration += time.Since(start)
	s.mu.Unlock()

	s.logger.Debug("stored object", "bucket", bucket, "key", key, "bytes", len(body))
	return nil
}

// Stats returns transfer statistics.
func (s *S3Store) Stats() S3StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// createAWSConfig creates AWS configuration from options.
func createAWSConfig(opts S3StoreOptions) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}

	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override with explicit credentials if provided
	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	return cfg, nil
}
