package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig holds the bucket and service-account key for Google Cloud Storage
type GCSConfig struct {
	Bucket          string
	CredentialsJSON string
}

// GCSStore is a Store backed by a Google Cloud Storage bucket
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore builds a client from the service-account JSON in cfg
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket must be provided")
	}
	if cfg.CredentialsJSON == "" {
		return nil, fmt.Errorf("gcs credentials must be provided")
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), gcs.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("unable to parse gcs credentials: %w", err)
	}

	// The HTTP client outlives ctx; token refreshes must not be tied to startup.
	httpClient := jwtConfig.Client(context.Background())

	client, err := gcs.NewClient(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create gcs client: %w", err)
	}

	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *GCSStore) Bucket() string {
	return s.bucket
}

// List returns every file under prefix, folder placeholders excluded
func (s *GCSStore) List(ctx context.Context, prefix string) ([]ObjectRecord, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var records []ObjectRecord
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapErr("list", prefix, err)
		}
		records = append(records, ObjectRecord{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
			ContentType:  attrs.ContentType,
		})
	}
	return filterFolders(records), nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	// Cancelling the context is the only way to abort a GCS write.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		cancel()
		_ = w.Close()
		return wrapErr("put", key, err)
	}
	return wrapErr("put", key, w.Close())
}

func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectRecord, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ObjectRecord{}, notFound("get", key, err)
		}
		return nil, ObjectRecord{}, wrapErr("get", key, err)
	}
	return r, ObjectRecord{
		Key:          key,
		Size:         r.Attrs.Size,
		LastModified: r.Attrs.LastModified,
		ContentType:  r.Attrs.ContentType,
	}, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return notFound("delete", key, err)
	}
	return wrapErr("delete", key, err)
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ Store = (*GCSStore)(nil)
