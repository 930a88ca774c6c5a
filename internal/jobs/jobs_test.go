package jobs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitd/pkg/types"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "state", "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return map[string]Store{"memory": NewMemory(), "bolt": b}
}

func TestStoreCRUD(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("m1")
			require.NoError(t, err)
			assert.False(t, ok)

			rec := NewRecord("m1", "logreg", 10, 3)
			require.NoError(t, s.Put(rec))
			got, ok, err := s.Get("m1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, rec.ID, got.ID)
			assert.Equal(t, types.JobPending, got.State)
			assert.Equal(t, 10, got.Rows)

			// latest job for a name wins
			next := NewRecord("m1", "lr", 4, 1)
			require.NoError(t, s.Put(next))
			got, _, _ = s.Get("m1")
			assert.Equal(t, next.ID, got.ID)

			require.NoError(t, s.Put(NewRecord("a0", "randf", 1, 1)))
			all, err := s.List()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "a0", all[0].Name)
			assert.Equal(t, "m1", all[1].Name)

			require.NoError(t, s.Delete("m1"))
			_, ok, _ = s.Get("m1")
			assert.False(t, ok)
			require.NoError(t, s.Delete("m1"), "deleting a missing record is not an error")

			require.NoError(t, s.DeleteAll())
			all, err = s.List()
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestRecoverInterrupted(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			pending := NewRecord("p", "lr", 1, 1)
			running := NewRecord("r", "lr", 1, 1)
			running.State = types.JobRunning
			running.StartedAt = time.Now().UTC()
			done := NewRecord("d", "lr", 1, 1)
			done.State = types.JobDone
			for _, j := range []types.JobStatus{pending, running, done} {
				require.NoError(t, s.Put(j))
			}

			n, err := RecoverInterrupted(s)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			for _, name := range []string{"p", "r"} {
				j, _, _ := s.Get(name)
				assert.Equal(t, types.JobFailed, j.State, name)
				assert.Equal(t, ErrInterrupted.Error(), j.Error)
				assert.False(t, j.FinishedAt.IsZero())
			}
			j, _, _ := s.Get("d")
			assert.Equal(t, types.JobDone, j.State)
		})
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	s, err := Open(path)
	require.NoError(t, err)
	rec := NewRecord("m1", "randf", 5, 2)
	require.NoError(t, s.Put(rec))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get("m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestBoltRejectsNamelessRecord(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer s.Close()
	assert.Error(t, s.Put(types.JobStatus{}))
}
