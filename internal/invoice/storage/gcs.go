package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// GCSStore keeps documents in a Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore uses ADC unless a credentials file is given.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("DOCUMENT_BUCKET is required for the gcs document store")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", bucket, err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Save implements model.DocumentStore.
func (s *GCSStore) Save(ctx context.Context, name string, content []byte) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = "application/pdf"
	if _, err := wc.Write(content); err != nil {
		_ = wc.Close()
		logx.Error().Err(err).Str("document", name).Msg("gcs upload failed")
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		logx.Error().Err(err).Str("document", name).Msg("gcs upload failed")
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, url.PathEscape(name)), nil
}

// Open implements model.DocumentStore.
func (s *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
