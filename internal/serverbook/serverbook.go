// Package serverbook composes the three persisted server stores: favorites,
// connection history, and recent servers.
package serverbook

import (
	"path/filepath"

	"github.com/grayfold/serverbook/internal/metrics"
	"github.com/grayfold/serverbook/internal/store"
	"go.uber.org/zap"
)

// Store names used for lookup, logs, and metrics.
const (
	FavoritesName     = "favorites"
	HistoryName       = "history"
	RecentServersName = "recent-servers"
)

// Backing file names, one per store, under the data directory.
const (
	FavoritesFile     = "server_favorites.json"
	HistoryFile       = "server_history.json"
	RecentServersFile = "RecentServers.json"
)

// Default capacities.
const (
	DefaultFavoritesCapacity     = 100
	DefaultHistoryCapacity       = 10
	DefaultRecentServersCapacity = 5
)

// Options configures a Book. Zero capacities fall back to the defaults.
type Options struct {
	// DataDir is the directory holding the three backing files.
	DataDir               string
	FavoritesCapacity     int
	HistoryCapacity       int
	RecentServersCapacity int
	Logger                *zap.Logger
	Recorder              metrics.StoreRecorder
}

// Book owns the three store instances. Favorites is a curated list in
// insertion order with FIFO eviction; History and RecentServers are
// recency-ordered and fed by connection attempts.
type Book struct {
	Favorites     *store.Store
	History       *store.Store
	RecentServers *store.Store
}

// New builds the three stores from opts. Call Load to read persisted state.
func New(opts Options) *Book {
	favCap := opts.FavoritesCapacity
	if favCap == 0 {
		favCap = DefaultFavoritesCapacity
	}
	histCap := opts.HistoryCapacity
	if histCap == 0 {
		histCap = DefaultHistoryCapacity
	}
	recentCap := opts.RecentServersCapacity
	if recentCap == 0 {
		recentCap = DefaultRecentServersCapacity
	}

	return &Book{
		Favorites: store.New(store.Options{
			Name:     FavoritesName,
			Path:     filepath.Join(opts.DataDir, FavoritesFile),
			Capacity: favCap,
			Order:    store.OrderInsertion,
			Logger:   opts.Logger,
			Recorder: opts.Recorder,
		}),
		History: store.New(store.Options{
			Name:       HistoryName,
			Path:       filepath.Join(opts.DataDir, HistoryFile),
			Capacity:   histCap,
			Order:      store.OrderRecency,
			SortOnLoad: true,
			Logger:     opts.Logger,
			Recorder:   opts.Recorder,
		}),
		RecentServers: store.New(store.Options{
			Name:     RecentServersName,
			Path:     filepath.Join(opts.DataDir, RecentServersFile),
			Capacity: recentCap,
			Order:    store.OrderRecency,
			Logger:   opts.Logger,
			Recorder: opts.Recorder,
		}),
	}
}

// Load reads persisted state for all three stores. Missing or corrupt files
// leave the affected store empty; Load never fails.
func (b *Book) Load() {
	b.Favorites.Load()
	b.History.Load()
	b.RecentServers.Load()
}

// RecordConnection records a successful or attempted connection: the server
// is upserted into History and RecentServers. Favorites is only mutated
// explicitly.
func (b *Book) RecordConnection(host string, port int, name string) {
	b.History.Upsert(host, port, name)
	b.RecentServers.Upsert(host, port, name)
}

// UpdateHistoryName renames an entry in History without touching its
// recency position or timestamp.
func (b *Book) UpdateHistoryName(host string, port int, name string) {
	b.History.Rename(host, port, name)
}

// Store returns the store with the given name and true if it exists.
func (b *Book) Store(name string) (*store.Store, bool) {
	switch name {
	case FavoritesName:
		return b.Favorites, true
	case HistoryName:
		return b.History, true
	case RecentServersName:
		return b.RecentServers, true
	default:
		return nil, false
	}
}

// Stores returns the three stores in a stable order.
func (b *Book) Stores() []*store.Store {
	return []*store.Store{b.Favorites, b.History, b.RecentServers}
}
