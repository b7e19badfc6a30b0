// Package blobstore stores screenshots and hands back the url they are reachable at.
package blobstore

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/filmio/pageload/internal/pageload/configuration"
)

type Store interface {
	// Put stores data under key and returns its public url.
	Put(ctx context.Context, data []byte, key string) (string, error)
}

// New builds the store selected by config.
func New(ctx context.Context, config configuration.BlobStoreConfiguration) (Store, error) {
	switch config.Type {
	case configuration.BlobStoreS3:
		return NewS3StoreFromRegion(ctx, config.Bucket, config.Region)
	case configuration.BlobStoreMemory, "":
		return NewMemoryStore(config.Bucket), nil
	default:
		return nil, errors.Errorf("unknown blob store type %q", config.Type)
	}
}

// EscapeKey escapes key for use as a single url path segment. Spaces become %20 rather than +.
func EscapeKey(key string) string {
	return strings.ReplaceAll(url.QueryEscape(key), "+", "%20")
}
