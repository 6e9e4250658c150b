// Package ambry stores opaque key-material blobs on disk with atomic
// publication: a blob under its final name is always a complete write, never
// a partial one. Downstream readers poll this directory continuously.
package ambry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Fixed accepted blob lengths. Single-flock ambries come in both sizes,
// bilateral ambries only in the full size.
const (
	FullSize  = 7542970
	ShareSize = 3756730
)

// Store is an on-disk blob store. Publications to the same name are
// serialized through a per-name mutex; each write lands in a unique temp file
// first and becomes visible only through rename.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ambry directory %s: %w", dir, err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// SingleName is the artifact name for a single-flock ambry.
func SingleName(flock string) string {
	return "ambry-" + flock
}

// PairName is the artifact name for a bilateral ambry. The pair is sorted so
// both parties converge on the same name regardless of who uploads.
// Identifiers are fixed-width lowercase hex, so string order is numeric order.
func PairName(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "ambry-" + a + "-" + b
}

// Path returns the final on-disk path for an artifact name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Publish writes blob under name. The write goes to a unique temp file in the
// same directory, is synced, and is renamed into place; a failure at any step
// leaves the previously published blob untouched.
func (s *Store) Publish(name string, blob []byte) (err error) {
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}

	if err = os.Rename(tmpPath, s.Path(name)); err != nil {
		return fmt.Errorf("publishing %s: %w", name, err)
	}
	return nil
}
