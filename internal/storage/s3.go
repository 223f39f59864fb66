// internal/storage/s3.go
package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds connection settings for S3 or an S3-compatible service.
type S3Config struct {
	Bucket string
	Region string

	// Endpoint overrides the AWS endpoint, e.g. a local MinIO instance.
	Endpoint string

	// Static credentials. Leave empty to use the default credential chain.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle is required by MinIO and some S3 clones.
	UsePathStyle bool

	// Prefix is prepended to every key, e.g. "chatter/".
	Prefix string
}

// S3Backend stores objects in an S3 bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 builds the client and verifies the bucket is reachable.
func NewS3(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, &Error{Op: "NewS3", Err: fmt.Errorf("bucket name is required")}
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &Error{Op: "NewS3", Err: fmt.Errorf("load AWS config: %w", err)}
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, &Error{Op: "NewS3", Err: fmt.Errorf("bucket not accessible: %w", err)}
	}

	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *S3Backend) fullKey(key string) string {
	return b.prefix + key
}

func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, &Error{Op: "Exists", Key: key, Err: err}
	}
	return true, nil
}

func (b *S3Backend) Reader(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error) {
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil, &Error{Op: "Reader", Key: key, Err: errNotFound{}}
		}
		return nil, nil, &Error{Op: "Reader", Key: key, Err: err}
	}

	info := &FileInfo{Key: key}
	if output.ContentType != nil {
		info.ContentType = *output.ContentType
	}
	if output.ETag != nil {
		info.ETag = strings.Trim(*output.ETag, "\"")
	}
	if output.LastModified != nil {
		info.ModTime = *output.LastModified
	}
	if output.ContentLength != nil {
		info.Size = *output.ContentLength
	}
	return output.Body, info, nil
}

// Write buffers the content to compute its MD5 and length before the put.
// Uploads here are bounded by the handler's size limit, so buffering is fine.
func (b *S3Backend) Write(ctx context.Context, key string, content io.Reader, size int64, contentType string) (*FileInfo, error) {
	var buf bytes.Buffer
	h := md5.New()
	writer := io.MultiWriter(&buf, h)

	var written int64
	var err error
	if size >= 0 {
		written, err = io.CopyN(writer, content, size)
	} else {
		written, err = io.Copy(writer, content)
	}
	if err != nil && err != io.EOF {
		return nil, &Error{Op: "Write", Key: key, Err: fmt.Errorf("buffer content: %w", err)}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.fullKey(key)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(written),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return nil, &Error{Op: "Write", Key: key, Err: err}
	}

	return &FileInfo{
		Key:         key,
		Size:        written,
		ContentType: contentType,
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ModTime:     time.Now(),
	}, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.fullKey(key)),
	})
	if err != nil && !isS3NotFound(err) {
		return &Error{Op: "Delete", Key: key, Err: err}
	}
	return nil
}

func (b *S3Backend) Close() error { return nil }

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "NoSuchKey") ||
		strings.Contains(errStr, "404")
}
