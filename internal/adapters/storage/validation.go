package storage

import (
	"net/http"
	"path"
	"strings"
)

// AllowedImageTypes maps the accepted upload MIME types to their extension.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// NormalizeContentType drops parameters like charset and lower-cases the type.
func NormalizeContentType(contentType string) string {
	normalized := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(normalized))
}

// DetectImageType sniffs the leading bytes of data and returns the image MIME
// type, or false when the content is not an accepted image.
func DetectImageType(data []byte) (string, bool) {
	sniffed := NormalizeContentType(http.DetectContentType(data))
	if _, ok := AllowedImageTypes[sniffed]; !ok {
		return "", false
	}
	return sniffed, true
}

// ObjectKey builds the storage key of an object inside folder. The extension
// follows the content type, never the client supplied name.
func ObjectKey(folder, name, contentType string) string {
	ext, ok := AllowedImageTypes[contentType]
	if !ok {
		ext = strings.ToLower(path.Ext(name))
	}
	return path.Join(folder, name+ext)
}

// SafeFilename strips directories and control characters from a client name.
func SafeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
