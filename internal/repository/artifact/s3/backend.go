// Package s3 stores artifact bundles in an S3-compatible bucket:
//
//	<prefix>/versions/<version>/<part>
//	<prefix>/CURRENT
//
// CURRENT is overwritten last; object PUTs are atomic, so readers see either
// the old or the new version.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/repository/artifact"
)

const currentKey = "CURRENT"

// API is the subset of *s3.Client the backend uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds bucket location and credentials.
// Empty keys fall back to the default AWS credential chain.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// NewClient builds an S3 client from cfg. Endpoint targets S3-compatible
// stores such as R2 or MinIO.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Backend implements artifact.Backend on S3.
type Backend struct {
	client API
	bucket string
	prefix string
}

// New creates a backend writing under prefix in bucket.
func New(client API, bucket, prefix string) (*Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Backend{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// NewStore builds a client from cfg and wraps the backend in an artifact.BlobStore.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*artifact.BlobStore, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b, err := New(client, cfg.Bucket, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	return artifact.NewStore(b, logger), nil
}

func (b *Backend) key(elems ...string) string {
	return path.Join(append([]string{b.prefix}, elems...)...)
}

func (b *Backend) put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (b *Backend) get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// PutPart uploads one part of an unpublished version.
func (b *Backend) PutPart(ctx context.Context, version, part string, data []byte) error {
	if err := validate(version, part); err != nil {
		return err
	}
	return b.put(ctx, b.key("versions", version, part), data)
}

// GetPart downloads one part.
func (b *Backend) GetPart(ctx context.Context, version, part string) ([]byte, error) {
	if err := validate(version, part); err != nil {
		return nil, err
	}
	return b.get(ctx, b.key("versions", version, part))
}

// Publish overwrites CURRENT with version.
func (b *Backend) Publish(ctx context.Context, version string) error {
	if err := artifact.ValidateName(version); err != nil {
		return err
	}
	return b.put(ctx, b.key(currentKey), []byte(version))
}

// CurrentVersion reads CURRENT.
func (b *Backend) CurrentVersion(ctx context.Context) (string, error) {
	raw, err := b.get(ctx, b.key(currentKey))
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(string(raw))
	if err := artifact.ValidateName(version); err != nil {
		return "", &artifact.CorruptionError{Part: currentKey, Reason: err.Error()}
	}
	return version, nil
}

func validate(version, part string) error {
	if err := artifact.ValidateName(version); err != nil {
		return err
	}
	return artifact.ValidateName(part)
}
