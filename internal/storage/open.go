package storage

import (
	"context"
	"fmt"
)

// Backend names accepted by Open
const (
	BackendMinio  = "minio"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Options selects and configures a backend
type Options struct {
	Backend string
	Bucket  string
	Minio   MinioConfig
	GCS     GCSConfig
}

// Open builds the Store named by opts.Backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMinio, "":
		cfg := opts.Minio
		if cfg.Bucket == "" {
			cfg.Bucket = opts.Bucket
		}
		client, err := NewMinioClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to minio: %w", err)
		}
		return NewMinioStore(client, cfg.Bucket), nil
	case BackendGCS:
		cfg := opts.GCS
		if cfg.Bucket == "" {
			cfg.Bucket = opts.Bucket
		}
		return NewGCSStore(ctx, cfg)
	case BackendMemory:
		return NewMemoryStore(opts.Bucket), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}
