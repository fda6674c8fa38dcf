package session_test

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"peerdrop/internal/errs"
	"peerdrop/internal/logger"
	"peerdrop/internal/protocol"
	"peerdrop/internal/session"
)

func newTestReceiver() *session.Receiver {
	return session.NewReceiver(logger.NewSilentLogger())
}

func feedTransfer(t *testing.T, r *session.Receiver, name string, content []byte) *session.Artifact {
	t.Helper()
	size := uint64(len(content))
	r.HandleStart(&protocol.FileStart{Name: name, Size: size, MimeType: "application/octet-stream"})

	var index uint32
	for offset := 0; offset < len(content); offset += protocol.ChunkSize {
		end := offset + protocol.ChunkSize
		if end > len(content) {
			end = len(content)
		}
		chunk := &protocol.FileChunk{Index: index, Data: content[offset:end], Progress: 50}
		if err := r.HandleChunk(chunk); err != nil {
			t.Fatalf("HandleChunk failed: %v", err)
		}
		index++
	}

	artifact, err := r.HandleComplete(&protocol.FileComplete{Name: name, Size: size, MimeType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("HandleComplete failed: %v", err)
	}
	return artifact
}

func TestReceiverAssemblesInOrder(t *testing.T) {
	r := newTestReceiver()
	content := testContent(40000)

	artifact := feedTransfer(t, r, "photo.jpg", content)

	if !bytes.Equal(artifact.Bytes(), content) {
		t.Error("assembled content differs from sent content")
	}
	if artifact.Name != "photo.jpg" {
		t.Errorf("expected name photo.jpg, got %s", artifact.Name)
	}
	if artifact.SizeMismatch {
		t.Error("unexpected size mismatch flag")
	}
	if r.State() != session.TransferCompleted {
		t.Errorf("expected completed state, got %s", r.State())
	}
	if r.Progress() != 100 {
		t.Errorf("expected progress 100, got %d", r.Progress())
	}
}

func TestReceiverSecondStartOverwrites(t *testing.T) {
	r := newTestReceiver()

	r.HandleStart(&protocol.FileStart{Name: "stale.bin", Size: 100})
	if err := r.HandleChunk(&protocol.FileChunk{Index: 0, Data: []byte("stale data"), Progress: 10}); err != nil {
		t.Fatalf("HandleChunk failed: %v", err)
	}

	fresh := testContent(500)
	artifact := feedTransfer(t, r, "fresh.bin", fresh)

	if !bytes.Equal(artifact.Bytes(), fresh) {
		t.Error("artifact holds data from the discarded transfer")
	}
	if artifact.Name != "fresh.bin" {
		t.Errorf("expected fresh.bin, got %s", artifact.Name)
	}
}

func TestReceiverIgnoresStrayChunk(t *testing.T) {
	r := newTestReceiver()

	if err := r.HandleChunk(&protocol.FileChunk{Index: 0, Data: []byte("stray"), Progress: 1}); err != nil {
		t.Fatalf("stray chunk should be ignored, got %v", err)
	}
	if r.State() != session.TransferIdle {
		t.Errorf("expected idle state after stray chunk, got %s", r.State())
	}
}

func TestReceiverFailsOnIndexGap(t *testing.T) {
	r := newTestReceiver()
	r.HandleStart(&protocol.FileStart{Name: "gap.bin", Size: 40000})

	if err := r.HandleChunk(&protocol.FileChunk{Index: 0, Data: testContent(16384), Progress: 41}); err != nil {
		t.Fatalf("HandleChunk failed: %v", err)
	}
	err := r.HandleChunk(&protocol.FileChunk{Index: 2, Data: testContent(16384), Progress: 82})
	if err == nil {
		t.Fatal("expected error on chunk index gap")
	}
	if !errors.Is(err, errs.ErrTransferAborted) {
		t.Errorf("expected ErrTransferAborted, got %v", err)
	}
	if r.State() != session.TransferFailed {
		t.Errorf("expected failed state, got %s", r.State())
	}

	if _, err := r.HandleComplete(&protocol.FileComplete{Name: "gap.bin", Size: 40000}); err == nil {
		t.Error("expected error completing a failed transfer")
	}
}

func TestReceiverCompleteWithoutStart(t *testing.T) {
	r := newTestReceiver()

	if _, err := r.HandleComplete(&protocol.FileComplete{Name: "ghost.bin", Size: 10}); err == nil {
		t.Error("expected error completing without an active transfer")
	}
}

func TestReceiverFlagsSizeMismatch(t *testing.T) {
	r := newTestReceiver()
	r.HandleStart(&protocol.FileStart{Name: "short.bin", Size: 9999})

	if err := r.HandleChunk(&protocol.FileChunk{Index: 0, Data: testContent(100), Progress: 1}); err != nil {
		t.Fatalf("HandleChunk failed: %v", err)
	}
	artifact, err := r.HandleComplete(&protocol.FileComplete{Name: "short.bin", Size: 9999})
	if err != nil {
		t.Fatalf("HandleComplete failed: %v", err)
	}
	if !artifact.SizeMismatch {
		t.Error("expected size mismatch flag")
	}
	if len(artifact.Bytes()) != 100 {
		t.Errorf("expected the received 100 bytes to be kept, got %d", len(artifact.Bytes()))
	}
}

func TestReceiverAbortDiscards(t *testing.T) {
	r := newTestReceiver()
	r.HandleStart(&protocol.FileStart{Name: "partial.bin", Size: 40000})
	if err := r.HandleChunk(&protocol.FileChunk{Index: 0, Data: testContent(16384), Progress: 41}); err != nil {
		t.Fatalf("HandleChunk failed: %v", err)
	}

	r.Abort()

	if r.State() != session.TransferFailed {
		t.Errorf("expected failed state after abort, got %s", r.State())
	}
	if _, err := r.HandleComplete(&protocol.FileComplete{Name: "partial.bin", Size: 40000}); err == nil {
		t.Error("expected error completing after abort")
	}
}

func TestArtifactDiscardIdempotent(t *testing.T) {
	r := newTestReceiver()
	artifact := feedTransfer(t, r, "note.txt", []byte("hello"))

	if artifact.Discarded() {
		t.Fatal("fresh artifact reported as discarded")
	}
	artifact.Discard()
	artifact.Discard()
	if !artifact.Discarded() {
		t.Error("artifact not discarded after Discard")
	}
	if artifact.Bytes() != nil {
		t.Error("expected nil content after discard")
	}
	if _, err := artifact.SaveTo(t.TempDir()); err == nil {
		t.Error("expected error saving a discarded artifact")
	}
}

func TestArtifactSaveTo(t *testing.T) {
	r := newTestReceiver()
	content := []byte("hello world")
	artifact := feedTransfer(t, r, "note.txt", content)

	path, err := artifact.SaveTo(t.TempDir())
	if err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("saved content differs from artifact content")
	}
}
