package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// Local Filesystem Storage
// =============================================================================

// Local stores files under a base directory. Path traversal is rejected in
// resolvePath.
type Local struct {
	basePath string
	baseURL  string
	logger   *slog.Logger
}

// NewLocal creates filesystem storage rooted at cfg.BasePath, creating the
// directory if needed.
func NewLocal(cfg LocalConfig, logger *slog.Logger) (*Local, error) {
	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	logger.Info("initialized local storage", "base_path", absPath, "base_url", baseURL)

	return &Local{basePath: absPath, baseURL: baseURL, logger: logger}, nil
}

// Put stores data at key.
func (s *Local) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return &Error{Op: "Put", Key: key, Err: err}
	}

	if !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return &Error{Op: "Put", Key: key, Err: ErrKeyExists}
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return &Error{Op: "Put", Key: key, Err: fmt.Errorf("create directory: %w", err)}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return &Error{Op: "Put", Key: key, Err: fmt.Errorf("create file: %w", err)}
	}
	defer file.Close()

	reader := data
	if opts.MaxSize > 0 {
		reader = io.LimitReader(data, opts.MaxSize+1)
	}
	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(filePath)
		return &Error{Op: "Put", Key: key, Err: fmt.Errorf("write file: %w", err)}
	}
	if opts.MaxSize > 0 && written > opts.MaxSize {
		os.Remove(filePath)
		return &Error{Op: "Put", Key: key, Err: ErrTooLarge}
	}

	s.logger.Debug("stored file", "key", key, "size", written)
	return nil
}

// Get returns the object at key.
func (s *Local) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if ctx.Err() != nil {
		return nil, ObjectInfo{}, ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return nil, ObjectInfo{}, &Error{Op: "Get", Key: key, Err: err}
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, &Error{Op: "Get", Key: key, Err: ErrNotFound}
		}
		return nil, ObjectInfo{}, &Error{Op: "Get", Key: key, Err: err}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, ObjectInfo{}, &Error{Op: "Get", Key: key, Err: err}
	}

	info := ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  DetectContentType("", key),
		LastModified: stat.ModTime(),
	}
	return file, info, nil
}

// Delete removes the object at key. Idempotent.
func (s *Local) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return &Error{Op: "Delete", Key: key, Err: err}
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "Delete", Key: key, Err: err}
	}
	return nil
}

// URL returns the public address of the object. Local files are always
// public; expires is ignored.
func (s *Local) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if _, err := s.resolvePath(key); err != nil {
		return "", &Error{Op: "URL", Key: key, Err: err}
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

// Exists reports whether an object is stored at key.
func (s *Local) Exists(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return false, &Error{Op: "Exists", Key: key, Err: err}
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &Error{Op: "Exists", Key: key, Err: err}
	}
	return true, nil
}

// resolvePath maps a key to an absolute path inside the base directory.
// Keys containing ".." or resolving outside the base are rejected.
func (s *Local) resolvePath(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	cleanKey := filepath.Clean(key)
	if strings.Contains(cleanKey, "..") {
		return "", ErrInvalidKey
	}

	absPath := filepath.Join(s.basePath, cleanKey)
	if !strings.HasPrefix(absPath, s.basePath) {
		return "", ErrInvalidKey
	}
	return absPath, nil
}
