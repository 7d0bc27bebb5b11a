package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the slice of the S3 client the registry needs.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Registry stores artifacts under {prefix}/{coord} in one bucket.
type S3Registry struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Registry(client S3API, bucket, prefix string) *S3Registry {
	return &S3Registry{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (r *S3Registry) key(coord Coord) string {
	return path.Join(r.prefix, string(coord))
}

// Exists checks the coordinate with a HeadObject call. A missing key is
// a normal answer, not an error.
func (r *S3Registry) Exists(ctx context.Context, coord Coord) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(coord)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if code := apiErr.ErrorCode(); code == "NotFound" || code == "NoSuchKey" || code == "404" {
			return false, nil
		}
	}
	return false, fmt.Errorf("failed to check %s: %w", r.Location(coord), err)
}

// Put uploads the file, recording its digest as object metadata so the
// store can be audited against SHA256SUMS later.
func (r *S3Registry) Put(ctx context.Context, coord Coord, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	digest := sha256.New()
	size, err := io.Copy(digest, f)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", filePath, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", filePath, err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.key(coord)),
		Body:          f,
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"sha256": hex.EncodeToString(digest.Sum(nil)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", r.Location(coord), err)
	}
	return nil
}

// Location renders the s3:// URL of a coordinate.
func (r *S3Registry) Location(coord Coord) string {
	return fmt.Sprintf("s3://%s/%s", r.bucket, r.key(coord))
}
