package storage

import (
	"mime"
	"path"
	"strings"
)

// DetectContentType resolves the MIME type of an object. An explicitly
// provided type wins; otherwise the key's extension decides, falling back
// to a generic binary type.
func DetectContentType(providedType, key string) string {
	if providedType != "" {
		return providedType
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// allowedPhotoTypes lists the MIME types accepted for evidence photos.
var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// IsAllowedPhotoType reports whether a content type may be uploaded as an
// evidence photo. Parameters like charset are ignored.
func IsAllowedPhotoType(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	return allowedPhotoTypes[strings.TrimSpace(strings.ToLower(base))]
}
