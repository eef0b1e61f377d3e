// Package blobstore holds the thumbnail rules (object naming, image checks)
// and a GridFS backend for waffle's storage.Store. Local and in-memory
// backends come from waffle itself.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

var (
	// ErrNotImage rejects uploads whose content type is not image/*.
	ErrNotImage = errors.New("file must be an image")
	// ErrTooLarge rejects uploads over the size limit.
	ErrTooLarge = errors.New("file is too large")
)

// ImageCacheControl is stored with every thumbnail. Object names are never
// reused, so the files can be cached indefinitely.
const ImageCacheControl = "public, max-age=31536000, immutable"

// PutImage writes an uploaded image at path and returns its public URL.
func PutImage(ctx context.Context, s storage.Store, path, contentType string, r io.Reader) (string, error) {
	err := s.Put(ctx, path, r, &storage.PutOptions{
		ContentType:  contentType,
		CacheControl: ImageCacheControl,
	})
	if err != nil {
		return "", err
	}
	return s.URL(path), nil
}

// UploadPath builds a collision-free object path for an article thumbnail:
// news/<unix millis>_<8 hex chars>-<sanitized name>.
func UploadPath(now time.Time, filename string) string {
	return fmt.Sprintf("news/%d_%s-%s", now.UnixMilli(), uuid.New().String()[:8], SanitizeFilename(filename))
}

// CheckImage enforces the thumbnail constraints. maxBytes <= 0 disables the
// size check.
func CheckImage(contentType string, size, maxBytes int64) error {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return ErrNotImage
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, maxBytes)
	}
	return nil
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore. Long names are cut to 100 bytes,
// preserving a short extension.
func SanitizeFilename(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if allowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := path.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func allowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}

func joinURL(prefix, p string) string {
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(p, "/")
}
