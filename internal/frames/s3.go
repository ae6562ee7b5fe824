package frames

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kiranshivaraju/quotehunter/internal/config"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// maxFrameBytes bounds a single frame read.
const maxFrameBytes = 8 << 20

// ObjectAPI is the subset of the S3 client the provider uses.
type ObjectAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Provider reads pre-extracted frames from an S3-compatible bucket. Frames
// for a reference live under <prefix>/<FrameKey(reference)>/ and are returned
// in key order.
type S3Provider struct {
	client    ObjectAPI
	bucket    string
	prefix    string
	maxFrames int
}

// NewS3Provider creates a provider with static credentials. A custom endpoint
// switches the client to path-style addressing for MinIO and friends.
func NewS3Provider(ctx context.Context, cfg config.S3Config, maxFrames int) (*S3Provider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			o.UsePathStyle = true
		}
	})

	return NewS3ProviderWithClient(client, cfg.Bucket, cfg.Prefix, maxFrames), nil
}

// NewS3ProviderWithClient wires an existing client, mainly for tests.
func NewS3ProviderWithClient(client ObjectAPI, bucket, prefix string, maxFrames int) *S3Provider {
	if maxFrames <= 0 {
		maxFrames = 3
	}
	return &S3Provider{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		maxFrames: maxFrames,
	}
}

func (p *S3Provider) Name() string { return "s3" }

func (p *S3Provider) Frames(ctx context.Context, reference string) ([]models.Frame, error) {
	dir := FrameKey(reference) + "/"
	if p.prefix != "" {
		dir = p.prefix + "/" + dir
	}

	out, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		Prefix:  aws.String(dir),
		MaxKeys: aws.Int32(int32(p.maxFrames * 4)),
	})
	if err != nil {
		return nil, fmt.Errorf("listing frames under %s: %w", dir, err)
	}

	keys := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if mediaTypeFor(key) != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if len(keys) > p.maxFrames {
		keys = keys[:p.maxFrames]
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: nothing under s3://%s/%s", ErrNoFrames, p.bucket, dir)
	}

	frames := make([]models.Frame, 0, len(keys))
	for _, key := range keys {
		frame, err := p.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func (p *S3Provider) fetch(ctx context.Context, key string) (models.Frame, error) {
	obj, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return models.Frame{}, fmt.Errorf("getting frame %s: %w", key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(io.LimitReader(obj.Body, maxFrameBytes))
	if err != nil {
		return models.Frame{}, fmt.Errorf("reading frame %s: %w", key, err)
	}

	mediaType := aws.ToString(obj.ContentType)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = mediaTypeFor(key)
	}
	return models.Frame{
		Data:      data,
		MediaType: mediaType,
		Source:    fmt.Sprintf("s3://%s/%s", p.bucket, key),
	}, nil
}

// FrameKey is the directory name frames for reference are stored under.
func FrameKey(reference string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(reference)))
	return hex.EncodeToString(sum[:])[:16]
}

func mediaTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return strings.TrimSuffix(endpoint, "/")
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, strings.TrimSuffix(endpoint, "/"))
}

var (
	_ Provider = (*S3Provider)(nil)
	_ Provider = (*Placeholder)(nil)
)
