// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // Non-empty enables path-style addressing (MinIO and similar)
	// PublicURL is the base URL objects are served from. Defaults to the
	// endpoint or the AWS virtual-hosted URL of the bucket.
	PublicURL string
	// Prefix is prepended to every object key, e.g. "gallery/".
	Prefix string
}

// S3Bucket stores objects in S3.
type S3Bucket struct {
	client   *s3.Client
	bucket   string
	prefix   string
	baseURL  string
	basePath string
}

// NewS3Bucket creates an S3 bucket client using the default AWS credential chain.
func NewS3Bucket(ctx context.Context, cfg S3Config) (*S3Bucket, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	base := cfg.PublicURL
	switch {
	case base != "":
	case cfg.Endpoint != "":
		base = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	baseURL := strings.TrimSuffix(base, "/") + "/" + cfg.Prefix
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse public URL: %w", err)
	}
	basePath := u.Path
	if basePath == "" {
		basePath = "/"
	}

	return &S3Bucket{
		client:   s3.NewFromConfig(awsCfg, s3opts...),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		baseURL:  baseURL,
		basePath: basePath,
	}, nil
}

func (b *S3Bucket) key(objectPath string) (string, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return b.prefix + p, nil
}

// Upload implements Bucket.
func (b *S3Bucket) Upload(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error {
	key, err := b.key(objectPath)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// PublicURL implements Bucket.
func (b *S3Bucket) PublicURL(objectPath string) string {
	return b.baseURL + objectPath
}

// PathFromURL implements Bucket.
func (b *S3Bucket) PathFromURL(rawURL string) (string, bool) {
	return pathFromURL(b.basePath, rawURL)
}

// Remove implements Bucket.
func (b *S3Bucket) Remove(ctx context.Context, objectPaths ...string) error {
	if len(objectPaths) == 0 {
		return nil
	}
	ids := make([]types.ObjectIdentifier, 0, len(objectPaths))
	for _, p := range objectPaths {
		key, err := b.key(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("s3 delete objects: %w", err)
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return fmt.Errorf("s3 delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}
	return nil
}

// List implements Bucket.
func (b *S3Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix + prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			out = append(out, Object{
				Path:    strings.TrimPrefix(aws.ToString(obj.Key), b.prefix),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}
