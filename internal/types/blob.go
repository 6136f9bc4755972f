package types

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// MIMEForPath returns the image content type for a filename, falling back
// to application/octet-stream for unknown extensions.
func MIMEForPath(path string) string {
	if mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// LoadBlob reads an image file into a Blob with its content type.
func LoadBlob(path string) (Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return Blob{MIME: MIMEForPath(path), Data: data}, nil
}
