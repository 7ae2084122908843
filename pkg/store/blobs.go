// Package store mediates access to the shared message log through a
// generic named-blob interface. The log lives in exactly one blob; the
// backend behind it is pluggable (pebble, S3 or in-memory).
package store

import (
	"context"
	"errors"
	"fmt"

	"quietpost/pkg/config"
)

// ErrNotFound is returned by Get when the named blob does not exist.
// Callers treat absence as an empty document, not a failure.
var ErrNotFound = errors.New("blob not found")

// Blobs is the key-value blob boundary: opaque byte values addressed by
// name, with whole-value get/put semantics and no partial updates.
type Blobs interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Close() error
}

// Open builds the configured blob backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Blobs, error) {
	switch cfg.Backend {
	case "", "pebble":
		return OpenPebble(cfg.DBPath)
	case "s3":
		return OpenS3(ctx, cfg.S3)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
