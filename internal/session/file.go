package session

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// File is the outbound side of a transfer: metadata plus the full
// content. The whole file is held in memory for the duration of the
// send, which caps practical file size to available memory.
type File struct {
	Name     string
	Size     uint64
	MimeType string
	Content  []byte
}

// LoadFile reads path into memory and fills in the metadata. The MIME
// type comes from the file extension, falling back to content sniffing.
func LoadFile(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	return File{
		Name:     filepath.Base(path),
		Size:     uint64(len(content)),
		MimeType: mimeType,
		Content:  content,
	}, nil
}
