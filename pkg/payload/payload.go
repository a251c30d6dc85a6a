// Package payload normalizes image sources into provider-ready payloads.
//
// A source string starting with http:// or https:// becomes a direct URL
// reference; anything else is treated as a local file path whose contents
// are read once, base64-encoded and tagged with a media type inferred from
// the file extension.
package payload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/visionlab/vision-analyzer/pkg/types"
)

// mediaTypes maps file extensions to MIME types. Lookups are
// case-insensitive; anything not listed falls back to image/jpeg.
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ErrFileNotFound reports that a local image path did not resolve to a
// readable file. Wrapped errors also satisfy errors.Is(err, fs.ErrNotExist).
var ErrFileNotFound = errors.New("image file not found")

// IsRemote reports whether source is an http(s) URL. The scheme match is
// case-sensitive, mirroring provider behavior.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// MediaTypeFor derives the MIME type for a local image path from its
// extension. Unrecognized or missing extensions default to image/jpeg.
func MediaTypeFor(path string) string {
	if mt, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "image/jpeg"
}

// Build normalizes an image source into a payload. URLs are passed through
// verbatim; local paths are read in full exactly once and inline-encoded.
// An empty detail is carried as-is so callers can omit the hint entirely.
func Build(source, detail string) (types.ImagePayload, error) {
	if IsRemote(source) {
		return types.ImagePayload{
			Kind:   types.PayloadURL,
			URL:    source,
			Detail: detail,
		}, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ImagePayload{}, fmt.Errorf("%w: %s: %w", ErrFileNotFound, source, err)
		}
		return types.ImagePayload{}, fmt.Errorf("failed to read image %s: %w", source, err)
	}

	return FromBytes(data, MediaTypeFor(source), detail), nil
}

// FromBytes builds an inline payload from raw image bytes that have already
// been loaded or re-encoded elsewhere.
func FromBytes(data []byte, mediaType, detail string) types.ImagePayload {
	return types.ImagePayload{
		Kind:      types.PayloadInline,
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
		Detail:    detail,
	}
}
