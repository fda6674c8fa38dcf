// Package store persists transfer history in sqlite.
package store

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// TransferRecord is one terminal transfer outcome.
type TransferRecord struct {
	ID        uint `gorm:"primaryKey"`
	PeerID    string
	FileName  string
	Size      uint64
	MimeType  string
	Direction string
	Status    string
	CreatedAt int64
}

type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the history database at path and runs
// migrations. Use ":memory:" for an ephemeral store.
func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&TransferRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(rec *TransferRecord) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	return s.db.Create(rec).Error
}

// List returns all records, newest first.
func (s *Store) List() ([]TransferRecord, error) {
	var recs []TransferRecord
	err := s.db.Order("created_at desc, id desc").Find(&recs).Error
	return recs, err
}
