// Package storage issues presigned S3 uploads for profile images.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"skillsync/internal/config"
)

type presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AvatarStore presigns PUT requests into one bucket.
type AvatarStore struct {
	bucket  string
	ttl     time.Duration
	presign presigner
	now     func() time.Time
	newKey  func(userID string) string
}

// NewAvatarStore returns nil when no bucket is configured.
func NewAvatarStore(ctx context.Context, cfg config.S3Config) (*AvatarStore, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newAvatarStore(cfg.Bucket, cfg.PresignTTL, s3.NewPresignClient(client)), nil
}

func newAvatarStore(bucket string, ttl time.Duration, p presigner) *AvatarStore {
	return &AvatarStore{
		bucket:  bucket,
		ttl:     ttl,
		presign: p,
		now:     time.Now,
		newKey: func(userID string) string {
			return "avatars/" + userID + "/" + uuid.NewString()
		},
	}
}

// PresignAvatarUpload returns a URL the client can PUT the image to, the
// object key, and when the URL stops working.
func (s *AvatarStore) PresignAvatarUpload(ctx context.Context, userID, contentType string) (string, string, time.Time, error) {
	key := s.newKey(userID)
	expiresAt := s.now().Add(s.ttl)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("presign avatar upload: %w", err)
	}
	return req.URL, key, expiresAt, nil
}
