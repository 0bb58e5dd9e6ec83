package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kirillkom/meal-nutrition/internal/core/ports"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/dataset"
)

type Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	Key             string
	AccessKeyID     string
	SecretAccessKey string
}

// Source downloads the reference dataset from an S3-compatible object store.
type Source struct {
	client *awss3.Client
	bucket string
	key    string
}

func New(ctx context.Context, opts Options) (*Source, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, fmt.Errorf("s3 dataset source: bucket and key are required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Source{client: client, bucket: opts.Bucket, key: opts.Key}, nil
}

func (s *Source) Fetch(ctx context.Context) (ports.DatasetPayload, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return ports.DatasetPayload{}, fmt.Errorf("get dataset object %s: %w", s.key, fs.ErrNotExist)
		}
		return ports.DatasetPayload{}, fmt.Errorf("get dataset object %s: %w", s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return ports.DatasetPayload{}, fmt.Errorf("read dataset object %s: %w", s.key, err)
	}
	return ports.DatasetPayload{
		Data:   data,
		Format: dataset.FormatFromName(s.key, aws.ToString(out.ContentType)),
		Origin: s.Describe(),
	}, nil
}

func (s *Source) Describe() string {
	return "s3://" + s.bucket + "/" + s.key
}
