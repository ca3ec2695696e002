// Package storage abstracts where evidence files live.
//
// Two implementations are provided. Local keeps files on disk and serves
// them over HTTP, which is what development and single-box deployments use.
// S3 targets any S3-compatible bucket for hosted deployments.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage stores and serves evidence files. All methods honor context
// cancellation.
type Storage interface {
	// Put stores data at key. Unless opts.Overwrite is set, writing to an
	// existing key returns ErrKeyExists.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns an address the object can be fetched from. For private
	// buckets the URL is presigned and valid for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type. Detected from the key when empty.
	ContentType string

	// MaxSize caps the object size in bytes. Zero means unlimited.
	MaxSize int64

	// Overwrite allows replacing an object at an occupied key.
	Overwrite bool

	// Public marks the object world-readable on providers that support ACLs.
	Public bool
}

// ObjectInfo holds metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration
// =============================================================================

// Provider names accepted by the STORAGE_PROVIDER setting.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// LocalConfig configures filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory, e.g. "./storage".
	BasePath string

	// BaseURL is the public prefix files are served under,
	// e.g. "http://localhost:8080/arquivos".
	BaseURL string
}

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Endpoint        string // custom endpoint; empty for AWS proper
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// PublicURL is an optional custom domain in front of the bucket. When
	// set, URL returns permanent addresses instead of presigned ones.
	PublicURL string
}

// =============================================================================
// Key Layout
// =============================================================================

// Evidence keys are grouped by case protocol so a case's files sit together:
//
//	inspecoes/2024-017/fotos/{uuid}.jpg
//	inspecoes/2024-017/miniaturas/{uuid}.jpg

// PhotoKey builds the storage key for an evidence photo.
func PhotoKey(protocol, filename string) string {
	return fmt.Sprintf("inspecoes/%s/fotos/%s%s", protocol, uuid.New(), path.Ext(filename))
}

// ThumbnailKey builds the storage key for a photo's thumbnail. The thumbnail
// shares the photo's object name so the pair is easy to correlate.
func ThumbnailKey(photoKey string) string {
	dir, name := path.Split(photoKey)
	base := strings.TrimSuffix(dir, "fotos/")
	return base + "miniaturas/" + name
}
