package store_test

import (
	"testing"

	"peerdrop/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return s
}

func TestStoreRecord(t *testing.T) {
	s := setupTestStore(t)

	rec := &store.TransferRecord{
		PeerID:    "peer-1",
		FileName:  "photo.jpg",
		Size:      40000,
		MimeType:  "image/jpeg",
		Direction: "receiving",
		Status:    store.StatusCompleted,
	}
	if err := s.Record(rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.CreatedAt == 0 {
		t.Error("expected CreatedAt to be filled in")
	}

	recs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].FileName != "photo.jpg" {
		t.Errorf("expected photo.jpg, got %s", recs[0].FileName)
	}
	if recs[0].Status != store.StatusCompleted {
		t.Errorf("expected completed, got %s", recs[0].Status)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	s := setupTestStore(t)

	first := &store.TransferRecord{FileName: "first.bin", Status: store.StatusAborted, CreatedAt: 100}
	second := &store.TransferRecord{FileName: "second.bin", Status: store.StatusCompleted, CreatedAt: 200}
	if err := s.Record(first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Record(second); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	recs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].FileName != "second.bin" {
		t.Errorf("expected second.bin first, got %s", recs[0].FileName)
	}
}

func TestStoreListEmpty(t *testing.T) {
	s := setupTestStore(t)

	recs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records, got %d", len(recs))
	}
}
