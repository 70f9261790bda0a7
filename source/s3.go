package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a tree stored under a bucket prefix.
type S3Source struct {
	client S3API
	bucket string
	prefix string
	filter Filter
}

var _ Source = (*S3Source)(nil)

// NewS3 loads AWS configuration and creates an S3Source. Static credentials
// are used when both keys are set, otherwise the default provider chain.
func NewS3(ctx context.Context, cfg Config, opts ...Option) (*S3Source, error) {
	if cfg.S3Bucket == "" {
		return nil, ErrBucketRequired
	}
	region := cfg.S3Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3WithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix, opts...), nil
}

// NewS3WithClient creates an S3Source over an existing client.
func NewS3WithClient(client S3API, bucket, prefix string, opts ...Option) *S3Source {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	o := applyOptions(opts)
	return &S3Source{client: client, bucket: bucket, prefix: prefix, filter: o.filter}
}

func (s *S3Source) List(ctx context.Context) ([]File, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var files []File
	pages := s3.NewListObjectsV2Paginator(s.client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if rel == "" || strings.HasSuffix(rel, "/") || !s.filter.Match(rel) {
				continue
			}
			files = append(files, File{Path: rel, Size: aws.ToInt64(obj.Size)})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *S3Source) Read(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Location returns the s3:// URL of a tree-relative path.
func (s *S3Source) Location(path string) string {
	return "s3://" + s.bucket + "/" + s.prefix + path
}
