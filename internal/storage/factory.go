package storage

import (
	"fmt"

	"readaloud/internal/config"
)

// NewAdapter creates a storage adapter based on the configuration
func NewAdapter(cfg config.StorageConfig) (Adapter, error) {
	switch cfg.Adapter {
	case config.StorageLocal:
		return NewLocalAdapter(cfg.Local.BasePath)
	case config.StorageS3:
		return NewS3Adapter(S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Adapter)
	}
}
