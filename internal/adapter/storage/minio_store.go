package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/ports"
)

// Options configures the object store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type minioStore struct {
	client *minio.Client
	bucket string
	log    *logrus.Logger
}

// New connects to the object store and ensures the bucket exists.
func New(opts Options, log *logrus.Logger) (ports.FileStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	if log == nil {
		log = logrus.New()
	}
	return &minioStore{client: client, bucket: opts.Bucket, log: log}, nil
}

// Upload stores the certificate under a collision-free object name and
// returns the reference used for later retrieval and deletion.
func (s *minioStore) Upload(ctx context.Context, requestID int64, content io.Reader, size int64, contentType string) (string, error) {
	ref := fmt.Sprintf("certificados/%d/%s.pdf", requestID, uuid.New().String())

	_, err := s.client.PutObject(ctx, s.bucket, ref, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload certificate: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"ref":        ref,
	}).Debug("certificate stored")
	return ref, nil
}

func (s *minioStore) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch certificate: %w", err)
	}
	return obj, nil
}

func (s *minioStore) Delete(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	return nil
}
