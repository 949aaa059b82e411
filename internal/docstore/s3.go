package docstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/model"
)

// S3API is the subset of the S3 client the backend calls.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 stores documents as objects under bucket/prefix. Each write is a
// single PutObject, so objects are never partially written.
type S3 struct {
	client S3API
	bucket string
	prefix string
}

// NewS3 builds a client from the default AWS credential chain.
func NewS3(ctx context.Context, bucket, prefix, region string) (*S3, error) {
	if bucket == "" {
		return nil, eris.New("docstore: s3 bucket is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: load aws config")
	}
	return NewS3WithClient(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client S3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3) key(prospectID string, kind model.DocumentKind) string {
	return path.Join(s.prefix, Key(prospectID, kind))
}

func (s *S3) Location(prospectID string, kind model.DocumentKind) string {
	return "s3://" + s.bucket + "/" + s.key(prospectID, kind)
}

func (s *S3) Exists(ctx context.Context, prospectID string, kind model.DocumentKind) (bool, error) {
	if err := checkKey(prospectID, kind); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(prospectID, kind)),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "docstore: head %s", s.key(prospectID, kind))
	}
	return true, nil
}

func (s *S3) Read(ctx context.Context, prospectID string, kind model.DocumentKind) (string, error) {
	if err := checkKey(prospectID, kind); err != nil {
		return "", err
	}
	key := s.key(prospectID, kind)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return "", eris.Wrapf(ErrNotFound, "docstore: get %s", key)
	}
	if err != nil {
		return "", eris.Wrapf(err, "docstore: get %s", key)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", eris.Wrapf(err, "docstore: read %s", key)
	}
	return string(data), nil
}

func (s *S3) Write(ctx context.Context, prospectID string, kind model.DocumentKind, content string) (string, error) {
	if err := checkKey(prospectID, kind); err != nil {
		return "", err
	}
	key := s.key(prospectID, kind)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String(contentType(kind)),
	})
	if err != nil {
		return "", eris.Wrapf(err, "docstore: put %s", key)
	}
	return s.Location(prospectID, kind), nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
