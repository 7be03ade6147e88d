// Package media turns object-storage keys stored on user profiles into
// short-lived download URLs.
package media

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// URLExpiry is how long a presigned URL stays valid.
const URLExpiry = 15 * time.Minute

var ErrNotConfigured = errors.New("object storage is not configured")

type Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

func (c Config) Enabled() bool {
	return c.Bucket != "" && c.BaseEndpoint != ""
}

// Presigner signs GET requests against an S3 compatible store (MinIO in
// development).
type Presigner struct {
	cfg Config
}

func NewPresigner(cfg Config) *Presigner {
	return &Presigner{cfg: cfg}
}

func (p *Presigner) client(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.cfg.RootUser,
			p.cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignGet returns a download URL for key.
func (p *Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	if !p.cfg.Enabled() {
		return "", ErrNotConfigured
	}

	pc, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	bucket := p.cfg.Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
