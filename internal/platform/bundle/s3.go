package bundle

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectGetter is the subset of *s3.Client used here.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Location is a bucket and key.
type S3Location struct {
	Bucket string
	Key    string
}

// ParseS3URL parses s3://bucket/key.
func ParseS3URL(raw string) (S3Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return S3Location{}, fmt.Errorf("parse s3 url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return S3Location{}, fmt.Errorf("invalid s3 url %q, want s3://bucket/key", raw)
	}
	return S3Location{Bucket: u.Host, Key: key}, nil
}

// NewS3Client builds a client from the default AWS configuration chain.
// Path-style addressing keeps S3-compatible stores such as MinIO working.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	}), nil
}

// ReadS3 downloads and decodes the bundle at loc.
func ReadS3(ctx context.Context, client objectGetter, loc S3Location) (*Bundle, error) {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	defer resp.Body.Close()
	return Read(io.LimitReader(resp.Body, maxBundleSize))
}

const maxBundleSize = 256 << 20
