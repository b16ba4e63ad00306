// Package attachments provides read-side access to transaction attachments
// stored in Google Cloud Storage. Attachments are written by the ingestion
// service; this package only fetches and links them.
package attachments

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// signedURLTTL bounds how long a viewing link stays valid.
const signedURLTTL = 15 * time.Minute

// Service fetches attachment objects from a single bucket. It assumes
// Application Default Credentials are configured.
type Service struct {
	bucket string
}

// NewService creates an attachment service over the given bucket.
func NewService(bucket string) *Service {
	return &Service{bucket: bucket}
}

// Fetch downloads the attachment bytes for the given object name.
func (s *Service) Fetch(ctx context.Context, objectName string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: open %s/%s: %w", s.bucket, objectName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read %s/%s: %w", s.bucket, objectName, err)
	}
	return data, nil
}

// SignedURL returns a short-lived V4 signed URL for viewing the attachment
// without proxying its bytes.
func (s *Service) SignedURL(ctx context.Context, objectName string) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("SignedURL: create storage client: %w", err)
	}
	defer client.Close()

	opts := &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(signedURLTTL),
		Scheme:  storage.SigningSchemeV4,
	}
	url, err := client.Bucket(s.bucket).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("SignedURL: sign %s/%s: %w", s.bucket, objectName, err)
	}
	return url, nil
}
