package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the part of the S3 client the sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds connection settings for an S3 compatible store. Empty
// fields fall back to the SDK's default chain.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a path-style client, which also works against MinIO
// and other S3 compatible servers.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 configuration: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// ParseS3URL splits "s3://bucket/prefix" into its parts.
func ParseS3URL(raw string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(raw, "s3://")
	if !found {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}

// S3 uploads artifacts to a bucket. Content is staged in a local temp file
// and uploaded in one PutObject call on Commit.
type S3 struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	tempDir string
}

// NewS3 creates an S3 sink. tempDir may be empty to use the system default.
func NewS3(client PutObjectAPI, bucket, prefix, tempDir string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), tempDir: tempDir}
}

func (s *S3) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Location implements Sink.
func (s *S3) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

// Create implements Sink.
func (s *S3) Create(_ context.Context, name string) (Artifact, error) {
	f, err := os.CreateTemp(s.tempDir, "storeysplit-*.ifc")
	if err != nil {
		return nil, err
	}
	return &s3Artifact{sink: s, f: f, key: s.key(name)}, nil
}

type s3Artifact struct {
	sink *S3
	f    *os.File
	key  string
	n    int64
	done bool
}

func (a *s3Artifact) Write(p []byte) (int, error) {
	n, err := a.f.Write(p)
	a.n += int64(n)
	return n, err
}

func (a *s3Artifact) Commit(ctx context.Context) error {
	defer a.Abort()
	if _, err := a.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := a.sink.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.sink.bucket),
		Key:           aws.String(a.key),
		Body:          a.f,
		ContentLength: aws.Int64(a.n),
		ContentType:   aws.String("application/x-step"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", a.key, err)
	}
	return nil
}

// Abort removes the staging file. Nothing is uploaded before Commit, so
// there is no remote state to clean up.
func (a *s3Artifact) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	closeErr := a.f.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	if err := os.Remove(a.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}
