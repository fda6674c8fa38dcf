package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Artifact is a fully received file. The coordinator owns at most one at
// a time and releases the previous one before exposing a replacement.
type Artifact struct {
	ID       uuid.UUID
	Name     string
	Size     uint64
	MimeType string
	// SizeMismatch is set when the assembled content length disagrees
	// with the size declared by the sender.
	SizeMismatch bool

	mu      sync.Mutex
	content []byte
}

func newArtifact(name string, size uint64, mimeType string, content []byte) *Artifact {
	return &Artifact{
		ID:           uuid.New(),
		Name:         name,
		Size:         size,
		MimeType:     mimeType,
		SizeMismatch: uint64(len(content)) != size,
		content:      content,
	}
}

// Bytes returns the assembled content, or nil once discarded.
func (a *Artifact) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content
}

// Discarded reports whether the backing content has been released.
func (a *Artifact) Discarded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content == nil
}

// Discard releases the backing content. Idempotent.
func (a *Artifact) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.content = nil
}

// SaveTo writes the content into dir under the artifact's name and
// returns the written path.
func (a *Artifact) SaveTo(dir string) (string, error) {
	a.mu.Lock()
	content := a.content
	a.mu.Unlock()

	if content == nil {
		return "", fmt.Errorf("artifact %s has been discarded", a.Name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(a.Name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
