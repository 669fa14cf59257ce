package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket          string
	Prefix          string
	Profile         string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PartSize        int64
}

type S3 struct {
	cfg      S3Config
	uploader *manager.Uploader
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode(aws.RetryModeAdaptive),
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize >= manager.MinUploadPartSize {
			u.PartSize = cfg.PartSize
		}
	})
	return &S3{cfg: cfg, uploader: uploader}, nil
}

func (s *S3) Name() string { return "s3" }

func (s *S3) Upload(ctx context.Context, localPath string, size int64, onProgress ProgressFunc) (Receipt, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Receipt{}, fmt.Errorf("error opening file: %v", err)
	}
	defer f.Close()

	body := &countingReader{r: f, onProgress: onProgress}
	key := path.Join(s.cfg.Prefix, path.Base(localPath))
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("error uploading to s3://%s/%s: %v", s.cfg.Bucket, key, err)
	}
	sent := body.n.Load()
	return Receipt{
		RemoteURL: out.Location,
		Bytes:     sent,
		Confirmed: out.Location != "" && sent == size,
	}, nil
}

type countingReader struct {
	r          io.Reader
	n          atomic.Int64
	onProgress ProgressFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		total := c.n.Add(int64(n))
		if c.onProgress != nil {
			c.onProgress(total)
		}
	}
	return n, err
}
