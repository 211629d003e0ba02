package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sidhant-sriv/looply-api/config"
)

// MinioStore keeps images in one bucket and returns public object URLs.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, client.EndpointURL().Host, cfg.Bucket)
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *MinioStore) Upload(ctx context.Context, img Image) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, img.ObjectName, img.Body, img.Size, minio.PutObjectOptions{
		ContentType: img.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", img.ObjectName, err)
	}
	return s.publicURL + "/" + img.ObjectName, nil
}

// Delete removes an object this store uploaded. URLs outside the bucket's
// public URL are left alone.
func (s *MinioStore) Delete(ctx context.Context, url string) error {
	if !s.owns(url) {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, objectNameFromURL(url), minio.RemoveObjectOptions{})
}

func (s *MinioStore) owns(url string) bool {
	return strings.HasPrefix(url, s.publicURL+"/")
}
