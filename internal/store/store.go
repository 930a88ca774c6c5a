// Package store persists fitted estimators as artifact files under a root
// directory, one file per model name.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"fitd/internal/common/fsutil"
	"fitd/internal/estimator"
	"fitd/pkg/types"
)

// Ext is the artifact file extension.
const Ext = ".model"

var (
	ErrNotFound    = errors.New("model not found")
	ErrInvalidName = errors.New("invalid model name")
)

var nameRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidName reports whether name can be used as a model name.
func ValidName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Store is a file-backed artifact store. It is safe for concurrent use; the
// manager serialises name-level decisions above it.
type Store struct {
	root string
}

// New returns a Store rooted at dir ("~" is expanded). The directory is
// created lazily by Save.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store: empty root directory")
	}
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute storage directory.
func (s *Store) Root() string { return s.root }

// Path returns the artifact path for name.
func (s *Store) Path(name string) string { return filepath.Join(s.root, name+Ext) }

// Save writes est under name, replacing any existing artifact.
func (s *Store) Save(name string, est estimator.Estimator) error {
	if err := ValidName(name); err != nil {
		return err
	}
	b, err := estimator.Marshal(est)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.Path(name), b, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Load reads and decodes the artifact for name.
func (s *Store) Load(name string) (estimator.Estimator, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	est, err := estimator.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return est, nil
}

// Exists reports whether an artifact is stored under name.
func (s *Store) Exists(name string) bool {
	if ValidName(name) != nil {
		return false
	}
	return fsutil.PathExists(s.Path(name))
}

// Remove deletes the artifact for name.
func (s *Store) Remove(name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// RemoveAll deletes every artifact under the root and returns how many were
// removed. A missing root is not an error. Files that are not artifacts are
// left alone.
func (s *Store) RemoveAll() (int, error) {
	names, err := s.names()
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, name := range names {
		if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// List returns the stored artifacts sorted by name. Loaded is left false.
func (s *Store) List() ([]types.ModelInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []types.ModelInfo
	for _, e := range entries {
		name, ok := artifactName(e)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, types.ModelInfo{
			Name:         name,
			SizeBytes:    info.Size(),
			ModifiedUnix: info.ModTime().Unix(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) names() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if name, ok := artifactName(e); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func artifactName(e os.DirEntry) (string, bool) {
	if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
		return "", false
	}
	name := strings.TrimSuffix(e.Name(), Ext)
	return name, ValidName(name) == nil
}

// Writable checks that artifacts can be created under the root, creating it
// if needed.
func (s *Store) Writable() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	return fsutil.DirWritable(s.root)
}
