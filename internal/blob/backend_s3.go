package blob

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Backend struct {
	s3Client *s3.Client
	uploader *manager.Uploader
	config   *S3Config
}

func NewS3Backend(s3Client *s3.Client, config *S3Config) *S3Backend {
	return &S3Backend{
		s3Client: s3Client,
		uploader: manager.NewUploader(s3Client),
		config:   config,
	}
}

func NewS3BackendWithConfig(cfg *S3Config) (*S3Backend, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          200,
			MaxIdleConnsPerHost:   100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.VerifySSL,
			},
		},
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	awsClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// path-style is the safe default for MinIO and friends
			o.UsePathStyle = true
		}
	})

	return NewS3Backend(awsClient, cfg), nil
}

// ===================================================================================================

func (s *S3Backend) PutFile(ctx context.Context, params *PutFileParams) (*PutFileResponse, error) {
	file, err := os.Open(params.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", params.FilePath, err)
	}
	defer file.Close()

	resp, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   &s.config.BucketName,
		Key:      &params.Key,
		Body:     file,
		Metadata: params.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return &PutFileResponse{
		Key:     params.Key,
		ETag:    strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		Version: aws.ToString(resp.VersionID),
	}, nil
}

func (s *S3Backend) Head(ctx context.Context, key string) (*HeadResponse, error) {
	resp, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}

	return &HeadResponse{
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		LastModified: aws.ToTime(resp.LastModified),
	}, nil
}

func (s *S3Backend) EnsureBucket(ctx context.Context) error {
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &s.config.BucketName,
	})
	if err == nil {
		slog.Debug("bucket exists", "bucket", s.config.BucketName)
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("head bucket %s: %w", s.config.BucketName, err)
	}

	slog.Info("creating bucket", "bucket", s.config.BucketName)
	input := &s3.CreateBucketInput{
		Bucket: &s.config.BucketName,
	}
	// us-east-1 rejects an explicit location constraint
	if s.config.Region != "" && s.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.config.Region),
		}
	}

	if _, err := s.s3Client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", s.config.BucketName, err)
	}
	return nil
}

// check if S3Backend implements the Backend interface
var _ Backend = (*S3Backend)(nil)
