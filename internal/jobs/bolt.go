package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"fitd/internal/common/fsutil"
	"fitd/pkg/types"
)

const jobsBucket = "jobs"

// BoltStore keeps job records in a bbolt database, one JSON value per model
// name.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*BoltStore, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("create jobs db dir: %w", err)
	}
	db, err := bbolt.Open(p, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open jobs database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(jobsBucket)); err != nil {
			return fmt.Errorf("create jobs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(job types.JobStatus) error {
	if job.Name == "" {
		return errors.New("job record without a name")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(jobsBucket)).Put([]byte(job.Name), data)
	})
}

func (s *BoltStore) Get(name string) (types.JobStatus, bool, error) {
	var (
		job types.JobStatus
		ok  bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(jobsBucket)).Get([]byte(name))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &job)
	})
	if err != nil {
		return types.JobStatus{}, false, fmt.Errorf("read job %s: %w", name, err)
	}
	return job, ok, nil
}

// List returns records in key order, which is name order.
func (s *BoltStore) List() ([]types.JobStatus, error) {
	var out []types.JobStatus
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(jobsBucket)).ForEach(func(k, v []byte) error {
			var j types.JobStatus
			if err := json.Unmarshal(v, &j); err != nil {
				return fmt.Errorf("unmarshal job %s: %w", k, err)
			}
			out = append(out, j)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Delete(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(jobsBucket)).Delete([]byte(name))
	})
}

func (s *BoltStore) DeleteAll() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(jobsBucket)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(jobsBucket))
		return err
	})
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
