// internal/common/aws/s3.go
package aws

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client wraps the S3 client for résumé storage. A candidate "folder" is a
// key prefix inside the configured bucket.
type S3Client struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Client(ctx context.Context, region, bucket string) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &S3Client{client: s3.NewFromConfig(cfg), bucket: bucket, region: region}, nil
}

// CreateFolder materializes the prefix with a zero-byte marker object so the
// folder is visible even before the first upload lands.
func (s *S3Client) CreateFolder(ctx context.Context, prefix string) error {
	key := strings.TrimSuffix(prefix, "/") + "/"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(""),
	})
	return err
}

// Upload stores a single file under the given prefix.
func (s *S3Client) Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) error {
	key := strings.TrimSuffix(prefix, "/") + "/" + filename
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}

// DeleteFolder removes every object under the prefix. Used by the orphan
// reconciliation path after a failed database write.
func (s *S3Client) DeleteFolder(ctx context.Context, prefix string) error {
	key := strings.TrimSuffix(prefix, "/") + "/"

	list, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(key),
	})
	if err != nil {
		return err
	}
	if len(list.Contents) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, 0, len(list.Contents))
	for _, obj := range list.Contents {
		objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
	}

	_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects},
	})
	return err
}

// FolderURL returns the shareable link for a prefix.
func (s *S3Client) FolderURL(prefix string) string {
	key := strings.TrimSuffix(prefix, "/") + "/"
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
