// Package status remembers the outcome of the last run of every repository
// in a small bbolt file shared by all of them.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultFileName is created in the root directory passed to update.
const DefaultFileName = ".doublegit-status.db"

const runsBucket = "runs"

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Record is the last run of one repository.
type Record struct {
	Repo           string    `json:"repo"`
	Outcome        Outcome   `json:"outcome"`
	Error          string    `json:"error,omitempty"`
	At             time.Time `json:"at"`
	New            int       `json:"new"`
	Changed        int       `json:"changed"`
	Removed        int       `json:"removed"`
	KeepersCreated int       `json:"keepers_created"`
	KeepersDeleted int       `json:"keepers_deleted"`
}

var ErrNotFound = errors.New("no recorded run")

type Store struct {
	db   *bolt.DB
	once sync.Once
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("status store path is required")
	}
	cleaned := filepath.Clean(path)
	if dir := filepath.Dir(cleaned); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(cleaned, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open status store %s: %w", cleaned, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Put replaces the record of r.Repo.
func (s *Store) Put(ctx context.Context, r Record) error {
	if r.Repo == "" {
		return errors.New("record without repository")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return tx.Bucket([]byte(runsBucket)).Put([]byte(r.Repo), data)
	})
}

func (s *Store) Get(repo string) (Record, error) {
	var r Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(repo))
		if data == nil {
			return fmt.Errorf("%s: %w", repo, ErrNotFound)
		}
		return json.Unmarshal(data, &r)
	})
	return r, err
}

// List returns every record ordered by repository path.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("record %s: %w", k, err)
			}
			records = append(records, r)
			return nil
		})
	})
	return records, err
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}
