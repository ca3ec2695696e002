package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// =============================================================================
// Photo Loading
// =============================================================================

// photoImage holds a decoded evidence photo ready for PDF embedding.
// Width and Height are the intrinsic pixel dimensions.
type photoImage struct {
	Data   []byte
	Type   string // fpdf image type: JPG, PNG or GIF
	Width  int
	Height int
}

// ImageDownloader abstracts photo fetching for report generation.
// This allows testing report generation without network I/O.
type ImageDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// HTTPImageDownloader fetches photos over HTTP.
type HTTPImageDownloader struct {
	client *http.Client
}

// NewHTTPImageDownloader creates an ImageDownloader that fetches photos over HTTP.
func NewHTTPImageDownloader() *HTTPImageDownloader {
	return &HTTPImageDownloader{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Download fetches a photo from a URL and returns its raw bytes.
func (d *HTTPImageDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("read image data: %w", err)
	}
	return buf.Bytes(), nil
}

// loadPhoto resolves a photo URL to decoded image data. Photos captured in
// the field arrive as inline base64 data URIs; photos stored in object
// storage arrive as http(s) URLs and go through the downloader.
func loadPhoto(ctx context.Context, downloader ImageDownloader, url string) (*photoImage, error) {
	var raw []byte
	switch {
	case strings.HasPrefix(url, "data:"):
		_, b64, ok := strings.Cut(url, ";base64,")
		if !ok {
			return nil, fmt.Errorf("unsupported data URI encoding")
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode data URI: %w", err)
		}
		raw = data
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		if downloader == nil {
			return nil, fmt.Errorf("no downloader configured for remote photo")
		}
		data, err := downloader.Download(ctx, url)
		if err != nil {
			return nil, err
		}
		raw = data
	default:
		return nil, fmt.Errorf("unsupported photo URL scheme")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var imgType string
	switch format {
	case "jpeg":
		imgType = "JPG"
	case "png":
		imgType = "PNG"
	case "gif":
		imgType = "GIF"
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	return &photoImage{
		Data:   raw,
		Type:   imgType,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
