package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

// S3Backend stores keys as objects in an S3-compatible bucket. It is
// intended for large, infrequently-changing schema blobs rather than the
// hot manifest-watch path; Watch is unsupported here for the same reason
// the reference Consul/etcd backends don't bother watching blob stores.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend wraps an existing S3 client bound to bucket.
func NewS3Backend(client *s3.Client, bucket string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket}
}

func (b *S3Backend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, regerrors.ErrSchemaNotFound
		}
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, regerrors.BackendUnavailable(err.Error())
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && strings.HasPrefix(*obj.Key, prefix) {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

func (b *S3Backend) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	return nil, regerrors.Custom("watch is not supported by the s3 backend")
}

func (b *S3Backend) Close(ctx context.Context) error {
	return nil
}
