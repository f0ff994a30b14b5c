// Package index keeps the in-memory embedding index and ranks it against a
// query vector by exact cosine similarity.
package index

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/newsrec/internal/domain"
)

// Entry is one indexed article: its ID and its embedding.
type Entry struct {
	ID     int64
	Vector []float32
}

// Snapshot is an immutable, fully built index generation.
type Snapshot struct {
	entries []Entry
	builtAt time.Time
}

// Entries returns the snapshot entries in insertion order. Callers must not modify them.
func (s *Snapshot) Entries() []Entry { return s.entries }

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// BuiltAt returns the time the snapshot was published.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Store holds one embedding per article. Rebuild publishes a new snapshot
// with a single pointer swap, so readers never lock and never see a partial index.
type Store struct {
	dims    int
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewStore creates an empty store. dims > 0 enforces the vector length on Rebuild.
func NewStore(dims int) *Store {
	return &Store{dims: dims, now: time.Now}
}

// Dimensions returns the enforced vector length, 0 when unchecked.
func (s *Store) Dimensions() int { return s.dims }

// Rebuild replaces the whole store. Duplicate IDs fail with
// domain.ErrDuplicateIdentifier and wrong-length vectors with
// domain.ErrVectorDimMismatch; on error the previous snapshot stays in place.
// Vectors are copied, the caller keeps ownership of its slices.
func (s *Store) Rebuild(entries []Entry) error {
	seen := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			return domain.NewDuplicateIdentifier(e.ID)
		}
		seen[e.ID] = struct{}{}
		if s.dims > 0 && len(e.Vector) != s.dims {
			return fmt.Errorf("%w: article %d has %d dimensions, index expects %d",
				domain.ErrVectorDimMismatch, e.ID, len(e.Vector), s.dims)
		}
	}

	// One backing array for all vectors keeps the snapshot compact.
	total := 0
	for _, e := range entries {
		total += len(e.Vector)
	}
	buf := make([]float32, total)

	owned := make([]Entry, len(entries))
	off := 0
	for i, e := range entries {
		n := copy(buf[off:], e.Vector)
		owned[i] = Entry{ID: e.ID, Vector: buf[off : off+n : off+n]}
		off += n
	}

	s.current.Store(&Snapshot{entries: owned, builtAt: s.now()})
	return nil
}

// Snapshot returns the current generation, false before the first successful Rebuild.
func (s *Store) Snapshot() (*Snapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}

// All returns the current entries, nil before the first Rebuild.
func (s *Store) All() []Entry {
	if snap := s.current.Load(); snap != nil {
		return snap.entries
	}
	return nil
}

// Size returns the number of indexed articles.
func (s *Store) Size() int {
	if snap := s.current.Load(); snap != nil {
		return len(snap.entries)
	}
	return 0
}
