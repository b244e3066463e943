package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrRecordNotFound is returned when a transfer record is not in the journal.
	ErrRecordNotFound = errors.New("transfer record not found")
)

var (
	transfersBucket = []byte("transfers")
)

// Direction identifies whether a record came from an upload or a download run.
type Direction string

const (
	DirectionUpload   Direction = "upload"
	DirectionDownload Direction = "download"
)

// TransferRecord is the journal entry for one completed transfer attempt.
type TransferRecord struct {
	Key         string    `json:"key"`
	Direction   Direction `json:"direction"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Outcome     string    `json:"outcome"`
	AssetID     string    `json:"asset_id,omitempty"`
	Bytes       int64     `json:"bytes,omitempty"`
	Error       string    `json:"error,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Journal defines the interface for recording transfer outcomes.
type Journal interface {
	Save(rec *TransferRecord) error
	Get(key string) (*TransferRecord, error)
	List() ([]*TransferRecord, error)
	Close() error
}

// BoltJournal is a Journal implementation backed by bbolt.
type BoltJournal struct {
	db *bbolt.DB
}

// NewBoltJournal creates a new BoltJournal at the given path.
func NewBoltJournal(path string) (*BoltJournal, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(transfersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create transfers bucket: %w", err)
	}

	return &BoltJournal{db: db}, nil
}

// Save writes a transfer record to the journal.
func (s *BoltJournal) Save(rec *TransferRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(transfersBucket)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		err = b.Put([]byte(rec.Key), data)
		if err != nil {
			return fmt.Errorf("failed to put record: %w", err)
		}

		return nil
	})
}

// Get retrieves a transfer record from the journal.
func (s *BoltJournal) Get(key string) (*TransferRecord, error) {
	var rec TransferRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(transfersBucket)
		data := b.Get([]byte(key))
		if data == nil {
			return ErrRecordNotFound
		}

		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// List returns every record in the journal in key order.
func (s *BoltJournal) List() ([]*TransferRecord, error) {
	var recs []*TransferRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(transfersBucket)
		return b.ForEach(func(_, data []byte) error {
			var rec TransferRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			recs = append(recs, &rec)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return recs, nil
}

// Close closes the underlying database.
func (s *BoltJournal) Close() error {
	return s.db.Close()
}
