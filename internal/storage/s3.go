package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	cacheArchive = "public, max-age=86400"
	cacheLatest  = "public, max-age=300"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Publisher uploads generated artifacts to S3.
type Publisher struct {
	client s3API
	bucket string
	prefix string
}

func New(ctx context.Context, bucket, prefix, region string) (*Publisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if region == "" {
		region = "us-west-2"
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}, nil
}

func NewWithClient(bucket, prefix string, client s3API) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}
}

func (p *Publisher) KeyForDate(t time.Time, filename string) string {
	y, m, d := t.UTC().Date()
	return joinKey(p.prefix, fmt.Sprintf("%04d", y), fmt.Sprintf("%02d", int(m)), fmt.Sprintf("%02d", d), filename)
}

func (p *Publisher) KeyForLatest(filename string) string {
	return joinKey(p.prefix, "latest", filename)
}

// PublishFile uploads a local artifact under its dated key and copies it to
// latest. It returns the dated key.
func (p *Publisher) PublishFile(ctx context.Context, t time.Time, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	return p.PublishBytes(ctx, t, filepath.Base(localPath), data)
}

// PublishBytes uploads in-memory data under its dated key and copies it to latest.
func (p *Publisher) PublishBytes(ctx context.Context, t time.Time, filename string, data []byte) (string, error) {
	contentType := ContentType(filename)
	key := p.KeyForDate(t, filename)
	if err := p.UploadBytes(ctx, key, data, contentType, cacheArchive); err != nil {
		return "", Describe(err)
	}
	if err := p.CopyToLatest(ctx, key, filename, contentType, cacheLatest); err != nil {
		return "", Describe(err)
	}
	return key, nil
}

// UploadBytes uploads in-memory data to the given key.
func (p *Publisher) UploadBytes(ctx context.Context, key string, data []byte, contentType, cacheControl string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if cacheControl != "" {
		input.CacheControl = aws.String(cacheControl)
	}
	_, err := p.client.PutObject(ctx, input)
	return err
}

// CopyToLatest copies an existing object to the latest key.
func (p *Publisher) CopyToLatest(ctx context.Context, srcKey, filename, contentType, cacheControl string) error {
	latestKey := p.KeyForLatest(filename)
	copySource := encodeCopySource(p.bucket, srcKey)
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(p.bucket),
		Key:        aws.String(latestKey),
		CopySource: aws.String(copySource),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if cacheControl != "" {
		input.CacheControl = aws.String(cacheControl)
	}
	if contentType != "" || cacheControl != "" {
		input.MetadataDirective = types.MetadataDirectiveReplace
	}
	_, err := p.client.CopyObject(ctx, input)
	return err
}

// ContentType guesses the MIME type of an artifact from its extension.
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, "/")
}

func joinKey(prefix string, parts ...string) string {
	all := []string{}
	if prefix != "" {
		all = append(all, prefix)
	}
	all = append(all, parts...)
	key := path.Join(all...)
	return strings.TrimPrefix(key, "/")
}

func encodeCopySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

// Describe adds the S3 error code to API errors so log lines stay readable.
func Describe(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("s3 %s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return err
}
