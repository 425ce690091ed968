// Package s3 stores image files in an S3 compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/materialize-demo/pkg/blogsite"
)

// DefaultCacheControl is sent with every image. Image keys embed the image
// id, so a stored file never changes.
const DefaultCacheControl = "public, max-age=31536000, immutable"

// Config options for the S3 store
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	KeyPrefix       string // Optional prefix for every key, e.g. "blog/"
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PresignDuration int    // Duration in seconds for presigned URLs (default: 3600)
	PublicBaseURL   string // Serve images from this base URL instead of presigning
	CacheControl    string // Cache-Control header stored with images (default: DefaultCacheControl)

	// Server-side encryption options
	EnableSSE    bool   // Enable server-side encryption
	SSEAlgorithm string // SSE algorithm (AES256 or aws:kms)
	SSEKMSKeyID  string // Optional KMS key ID for aws:kms algorithm

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
}

// API is the subset of the S3 client used by the store
type API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Presigner produces presigned GET requests
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store keeps image files in a bucket and implements blogsite.BlobStore
type Store struct {
	client    API
	presigner Presigner
	uploader  *manager.Uploader
	config    Config
	expires   time.Duration
}

// New connects to S3 (or a compatible service) using the AWS default
// credential chain unless static credentials are configured.
func New(config Config) (blogsite.BlobStore, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(static))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		}
	})
	store := NewWithClient(client, s3.NewPresignClient(client), config)

	if config.CreateBucketIfNotExist {
		if err := store.ensureBucket(context.Background()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// NewWithClient creates a store around an existing client, mainly for tests
func NewWithClient(client API, presigner Presigner, config Config) *Store {
	if config.PresignDuration <= 0 {
		config.PresignDuration = 3600
	}
	if config.CacheControl == "" {
		config.CacheControl = DefaultCacheControl
	}
	config.PublicBaseURL = strings.TrimRight(config.PublicBaseURL, "/")
	config.KeyPrefix = strings.Trim(config.KeyPrefix, "/")

	return &Store{
		client:    client,
		presigner: presigner,
		uploader:  manager.NewUploader(client),
		config:    config,
		expires:   time.Duration(config.PresignDuration) * time.Second,
	}
}

// key maps an image key to its key in the bucket.
func (s *Store) key(objectKey string) string {
	objectKey = strings.TrimLeft(objectKey, "/")
	if s.config.KeyPrefix == "" {
		return objectKey
	}
	return path.Join(s.config.KeyPrefix, objectKey)
}

func (s *Store) ensureBucket(ctx context.Context) error {
	bucket := aws.String(s.config.Bucket)
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: bucket})
	switch {
	case err == nil:
		return nil
	case !isMissingBucket(err):
		return fmt.Errorf("failed to check bucket %s: %w", s.config.Bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: bucket}
	// us-east-1 rejects an explicit location constraint
	if s.config.Region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.config.Region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, in); err != nil && !hasErrorCode(err, "BucketAlreadyExists", "BucketAlreadyOwnedByYou") {
		return fmt.Errorf("failed to create bucket %s: %w", s.config.Bucket, err)
	}
	return nil
}

// Upload stores an image file
func (s *Store) Upload(ctx context.Context, objectKey string, reader io.Reader, mimeType string) error {
	in := &s3.PutObjectInput{
		Bucket:       aws.String(s.config.Bucket),
		Key:          aws.String(s.key(objectKey)),
		Body:         reader,
		CacheControl: aws.String(s.config.CacheControl),
	}
	if mimeType != "" {
		in.ContentType = aws.String(mimeType)
	}
	s.encrypt(in)

	if _, err := s.uploader.Upload(ctx, in); err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	return nil
}

func (s *Store) encrypt(in *s3.PutObjectInput) {
	if !s.config.EnableSSE {
		return
	}
	switch s.config.SSEAlgorithm {
	case "aws:kms":
		in.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if s.config.SSEKMSKeyID != "" {
			in.SSEKMSKeyId = aws.String(s.config.SSEKMSKeyID)
		}
	default:
		in.ServerSideEncryption = types.ServerSideEncryptionAes256
	}
}

// Download streams an image file
func (s *Store) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(objectKey)),
	})
	if err != nil {
		return nil, notFoundOr(err, "download")
	}
	return out.Body, nil
}

// Delete removes an image file
func (s *Store) Delete(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(objectKey)),
	})
	if err != nil {
		return notFoundOr(err, "delete")
	}
	return nil
}

// URL returns the public URL of the image when a public base URL is
// configured, otherwise a presigned GET URL that displays inline
func (s *Store) URL(ctx context.Context, objectKey string) (string, error) {
	key := s.key(objectKey)
	if s.config.PublicBaseURL != "" {
		return s.config.PublicBaseURL + "/" + key, nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.config.Bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String("inline"),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectKey, err)
	}
	return req.URL, nil
}

// Stat returns size, type and modification time of an image file
func (s *Store) Stat(ctx context.Context, objectKey string) (*blogsite.ObjectMeta, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(objectKey)),
	})
	if err != nil {
		return nil, notFoundOr(err, "stat")
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &blogsite.ObjectMeta{
		Key:         objectKey,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: contentType,
		UpdatedAt:   aws.ToTime(out.LastModified),
		ETag:        strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// notFoundOr maps missing keys to blogsite.ErrObjectNotFound.
func notFoundOr(err error, op string) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || hasErrorCode(err, "NotFound", "NoSuchKey") {
		return blogsite.ErrObjectNotFound
	}
	return fmt.Errorf("s3 %s: %w", op, err)
}

func isMissingBucket(err error) bool {
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noSuchBucket) ||
		hasErrorCode(err, "NotFound", "NoSuchBucket", "BadRequest")
}

// hasErrorCode reports whether err carries one of the given S3 API error codes.
func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
