package blobstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

type s3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads publicly readable objects and returns their virtual-hosted-style url.
type S3Store struct {
	client s3Putter
	bucket string
}

func NewS3Store(client s3Putter, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func NewS3StoreFromRegion(ctx context.Context, bucket string, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("s3 blob store requires a bucket")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "error loading aws config")
	}
	return NewS3Store(s3.NewFromConfig(cfg), bucket), nil
}

func (s *S3Store) Put(ctx context.Context, data []byte, key string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ACL:         types.ObjectCannedACLPublicRead,
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", errors.Wrapf(err, "error uploading %s to bucket %s", key, s.bucket)
	}
	return s.URL(key), nil
}

func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, EscapeKey(key))
}
