package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/quorum-vault/interfaces"
)

// S3Config configures an S3Store.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint selects an S3-compatible service. Path-style addressing is used when set.
	Endpoint string
	// AccessKey and SecretKey select static credentials. When empty the default
	// AWS credential chain applies.
	AccessKey string
	SecretKey string
}

// S3Store implements a key-value store using Amazon S3 or compatible services.
// Every key maps to one private object.
type S3Store struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Store creates a new S3-backed store.
func NewS3Store(config S3Config, log *slog.Logger) (*S3Store, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", config.Bucket, config.Prefix, config.Region)
	if config.AccessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", config.AccessKey, config.Bucket, config.Prefix, config.Region)
	}
	if config.Endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", config.Endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(config.Region),
	}
	if config.Endpoint != "" {
		cfg.Endpoint = aws.String(config.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client:      s3.New(sess),
		bucketName:  config.Bucket,
		prefix:      strings.Trim(config.Prefix, "/"),
		log:         log,
		locationURI: uri,
	}, nil
}

// Get retrieves the object for key. Returns ErrKeyNotFound if the object doesn't exist.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			s.log.Debug("Key not found in S3",
				slog.String("bucket", s.bucketName),
				slog.String("key", objectKey))
			return nil, interfaces.ErrKeyNotFound
		}

		s.log.Error("Failed to get object from S3",
			slog.String("bucket", s.bucketName),
			slog.String("key", objectKey),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	s.log.Debug("Fetched value from S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Put uploads value as the object for key.
func (s *S3Store) Put(ctx context.Context, key string, value []byte) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(value),
		ACL:    aws.String(s3.ObjectCannedACLPrivate),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	s.log.Debug("Stored value in S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", objectKey),
		slog.Int("size", len(value)))

	return nil
}

// Available checks if the bucket is accessible.
func (s *S3Store) Available(ctx context.Context) bool {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		s.log.Warn("S3 store unavailable",
			slog.String("bucket", s.bucketName),
			"err", err)
		return false
	}
	return true
}

func (s *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", s.bucketName)
}

func (s *S3Store) LocationURI() string {
	return s.locationURI
}

func (s *S3Store) objectKey(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if s.prefix == "" {
		return key, nil
	}
	return path.Join(s.prefix, key), nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
