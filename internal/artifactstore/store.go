// Package artifactstore persists captured artifact payloads (wound
// photos, audio notes, scanned documents) in S3-compatible object
// storage and hands back stable references for the case record.
package artifactstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/wardlight/intake/internal/schema"
)

// Options configure the object storage connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Store wraps a MinIO client scoped to one artifact bucket.
type Store struct {
	client *minio.Client
	bucket string
	region string
	clock  func() time.Time
}

// StoreOption customizes store construction.
type StoreOption func(*Store)

// WithClock injects a deterministic clock for capture timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates a store from connection options.
func New(opts Options, storeOpts ...StoreOption) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("artifactstore: init minio: %w", err)
	}
	s := &Store{
		client: client,
		bucket: opts.Bucket,
		region: opts.Region,
		clock:  time.Now,
	}
	for _, opt := range storeOpts {
		opt(s)
	}
	return s, nil
}

// EnsureBucket makes sure the artifact bucket exists before first use.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("artifactstore: check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("artifactstore: make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload stores one artifact payload under the case's prefix and
// returns its reference. The object key is case/<caseID>/<artifactID>.
func (s *Store) Upload(ctx context.Context, caseID string, kind schema.ArtifactKind, reader io.Reader, size int64, contentType string) (schema.ArtifactRef, error) {
	artifactID := uuid.NewString()
	key := objectKey(caseID, artifactID)
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, opts); err != nil {
		return schema.ArtifactRef{}, fmt.Errorf("artifactstore: upload artifact %s: %w", artifactID, err)
	}
	captured := s.clock()
	return schema.ArtifactRef{
		ID:         artifactID,
		Kind:       kind,
		URI:        fmt.Sprintf("s3://%s/%s", s.bucket, key),
		CapturedAt: &captured,
		Metadata:   map[string]string{"contentType": contentType},
	}, nil
}

// Download fetches an artifact payload by case and artifact id.
func (s *Store) Download(ctx context.Context, caseID, artifactID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(caseID, artifactID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("artifactstore: get artifact %s: %w", artifactID, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("artifactstore: read artifact %s: %w", artifactID, err)
	}
	return data, nil
}

// PresignURL returns a time-limited GET URL for an artifact, for
// review-screen rendering without proxying bytes through the service.
func (s *Store) PresignURL(ctx context.Context, caseID, artifactID string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey(caseID, artifactID), expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("artifactstore: presign artifact %s: %w", artifactID, err)
	}
	return u.String(), nil
}

func objectKey(caseID, artifactID string) string {
	return fmt.Sprintf("case/%s/%s", caseID, artifactID)
}
