// Package store implements the bounded, deduplicated, persisted server list
// behind favorites, history, and recent servers.
package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/grayfold/serverbook/internal/metrics"
	"github.com/grayfold/serverbook/model"
	"go.uber.org/zap"
)

// Order is the list ordering and eviction policy of a store.
type Order int

const (
	// OrderInsertion keeps entries in arrival order; a touch updates the
	// entry in place, and eviction removes the oldest-inserted entry from
	// the head.
	OrderInsertion Order = iota
	// OrderRecency keeps the most recently touched entry at the head;
	// eviction removes the least recently used entry from the tail.
	OrderRecency
)

// Options configures a store instance.
type Options struct {
	// Name labels the store in logs and metrics.
	Name string
	// Path is the backing JSON file, exclusively owned by this store.
	Path string
	// Capacity is the maximum number of entries (>= 1).
	Capacity int
	// Order is the ordering and eviction policy.
	Order Order
	// SortOnLoad sorts entries by LastContact descending on Load regardless
	// of on-disk order. Only the history store sets this.
	SortOnLoad bool
	Logger     *zap.Logger
	Recorder   metrics.StoreRecorder
}

// Store is a bounded, deduplicated list of server entries persisted to a
// JSON file. Entries are unique by case-insensitive (host, port). Safe for
// concurrent use.
type Store struct {
	name       string
	path       string
	capacity   int
	order      Order
	sortOnLoad bool
	logger     *zap.Logger
	recorder   metrics.StoreRecorder
	now        func() time.Time

	mu      sync.Mutex
	entries []model.Entry
}

// New returns an empty store. Call Load to read persisted state.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		name:       opts.Name,
		path:       opts.Path,
		capacity:   opts.Capacity,
		order:      opts.Order,
		sortOnLoad: opts.SortOnLoad,
		logger:     logger.With(zap.String("store", opts.Name)),
		recorder:   opts.Recorder,
		now:        time.Now,
	}
}

// Name returns the store's label.
func (s *Store) Name() string { return s.name }

// Capacity returns the store's maximum entry count.
func (s *Store) Capacity() int { return s.capacity }

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Load reads the backing file. A missing file yields an empty store; a
// malformed or unreadable file is logged and yields an empty store. Load
// never fails: corrupt persisted state must not block startup.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := readEntries(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("no persisted state", zap.String("path", s.path))
		} else {
			s.logger.Warn("load failed, starting empty",
				zap.String("path", s.path),
				zap.Error(err))
			if s.recorder != nil {
				s.recorder.RecordPersistFailure(context.Background(), s.name, metrics.OpLoad, metrics.ClassifyIOError(err))
			}
		}
		s.entries = nil
		return
	}

	// Drop unusable entries and duplicates; first occurrence wins.
	seen := make(map[string]bool, len(loaded))
	entries := loaded[:0]
	for _, e := range loaded {
		if e.Host == "" || seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		entries = append(entries, e)
	}
	if s.sortOnLoad {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].LastContact.After(entries[j].LastContact)
		})
	}
	s.entries = entries
	s.evictLocked()

	s.logger.Info("loaded persisted state",
		zap.String("path", s.path),
		zap.Int("entries", len(s.entries)))
	if s.recorder != nil {
		ctx := context.Background()
		s.recorder.RecordMutation(ctx, s.name, metrics.OpLoad)
		s.recorder.RecordSize(ctx, s.name, int64(len(s.entries)))
	}
}

// Snapshot returns an independent ordered copy of all entries.
func (s *Store) Snapshot() []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]model.Entry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Upsert adds the server or updates the existing entry with the same
// case-insensitive (host, port). LastContact is set to now; displayName
// overwrites the stored name only when non-empty. Recency-ordered stores
// move the entry to the head. The resulting state is persisted; an empty
// host is ignored.
func (s *Store) Upsert(host string, port int, displayName string) {
	if host == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey(host, port)
	if i := s.indexLocked(key); i >= 0 {
		e := s.entries[i]
		e.LastContact = s.now()
		if displayName != "" {
			e.DisplayName = displayName
		}
		if s.order == OrderRecency && i != 0 {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.entries = append([]model.Entry{e}, s.entries...)
		} else {
			s.entries[i] = e
		}
	} else {
		e := model.Entry{
			Host:        host,
			Port:        port,
			DisplayName: displayName,
			LastContact: s.now(),
		}
		if s.order == OrderRecency {
			s.entries = append([]model.Entry{e}, s.entries...)
		} else {
			s.entries = append(s.entries, e)
		}
		s.evictLocked()
	}
	s.persistLocked(metrics.OpUpsert)
}

// Remove deletes the entry with the matching (host, port). Removing an
// absent entry is a no-op and does not rewrite the file.
func (s *Store) Remove(host string, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(entryKey(host, port))
	if i < 0 {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.persistLocked(metrics.OpRemove)
}

// Clear empties the store and persists the empty state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.persistLocked(metrics.OpClear)
}

// Rename sets the display name of the matching entry without touching its
// position or LastContact. Renaming an absent entry is a no-op.
func (s *Store) Rename(host string, port int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(entryKey(host, port))
	if i < 0 {
		return
	}
	s.entries[i].DisplayName = name
	s.persistLocked(metrics.OpRename)
}

func (s *Store) indexLocked(key string) int {
	for i, e := range s.entries {
		if e.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) evictLocked() {
	for len(s.entries) > s.capacity {
		var evicted model.Entry
		if s.order == OrderInsertion {
			evicted = s.entries[0]
			s.entries = s.entries[1:]
		} else {
			evicted = s.entries[len(s.entries)-1]
			s.entries = s.entries[:len(s.entries)-1]
		}
		s.logger.Debug("evicted entry", zap.String("addr", evicted.Addr()))
		if s.recorder != nil {
			s.recorder.RecordMutation(context.Background(), s.name, metrics.OpEvict)
		}
	}
}

// persistLocked writes the current state. A write failure is logged and
// counted but never rolls back the in-memory mutation: the in-memory view
// stays the source of truth for the rest of the session.
func (s *Store) persistLocked(op string) {
	ctx := context.Background()
	if err := writeEntries(s.path, s.entries); err != nil {
		s.logger.Error("persist failed",
			zap.String("path", s.path),
			zap.Error(err))
		if s.recorder != nil {
			s.recorder.RecordPersistFailure(ctx, s.name, op, metrics.ClassifyIOError(err))
		}
	}
	if s.recorder != nil {
		s.recorder.RecordMutation(ctx, s.name, op)
		s.recorder.RecordSize(ctx, s.name, int64(len(s.entries)))
	}
}

func entryKey(host string, port int) string {
	return model.Entry{Host: host, Port: port}.Key()
}
