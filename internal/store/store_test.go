package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grayfold/serverbook/model"
)

func newTestStore(t *testing.T, capacity int, order Order, sortOnLoad bool) *Store {
	t.Helper()
	s := New(Options{
		Name:       "test",
		Path:       filepath.Join(t.TempDir(), "test.json"),
		Capacity:   capacity,
		Order:      order,
		SortOnLoad: sortOnLoad,
	})
	// Monotonic clock so recency order is deterministic.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return s
}

func addrs(entries []model.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Addr()
	}
	return out
}

func TestStore_UpsertDedup(t *testing.T) {
	tests := []struct {
		name  string
		order Order
	}{
		{name: "insertion", order: OrderInsertion},
		{name: "recency", order: OrderRecency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, 10, tt.order, false)
			s.Upsert("192.0.2.1", 2302, "")
			s.Upsert("192.0.2.1", 2302, "named")
			if s.Len() != 1 {
				t.Fatalf("Len() = %d, want 1", s.Len())
			}
			snap := s.Snapshot()
			if snap[0].DisplayName != "named" {
				t.Errorf("DisplayName = %q, want %q", snap[0].DisplayName, "named")
			}
		})
	}
}

func TestStore_UpsertCaseInsensitiveHost(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Upsert("A.B.C", 80, "")
	s.Upsert("a.b.c", 80, "")
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_UpsertKeepsNameWhenEmpty(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Upsert("192.0.2.1", 2302, "Named Server")
	s.Upsert("192.0.2.1", 2302, "")
	snap := s.Snapshot()
	if snap[0].DisplayName != "Named Server" {
		t.Errorf("DisplayName = %q, want %q", snap[0].DisplayName, "Named Server")
	}
}

func TestStore_RecencyReorderOnTouch(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Upsert("x.example", 1000, "")
	s.Upsert("y.example", 1000, "")
	s.Upsert("x.example", 1000, "")

	got := addrs(s.Snapshot())
	want := []string{"x.example:1000", "y.example:1000"}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStore_InsertionOrderIgnoresTouch(t *testing.T) {
	s := newTestStore(t, 3, OrderInsertion, false)
	s.Upsert("a.example", 1, "")
	s.Upsert("b.example", 1, "")
	s.Upsert("c.example", 1, "")
	// Touching the first entry must not protect it from FIFO eviction.
	s.Upsert("a.example", 1, "")
	s.Upsert("d.example", 1, "")

	got := addrs(s.Snapshot())
	want := []string{"b.example:1", "c.example:1", "d.example:1"}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStore_RecencyEviction(t *testing.T) {
	s := newTestStore(t, 5, OrderRecency, false)
	for _, host := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"} {
		s.Upsert(host, 1000, "")
	}
	snap := s.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("Len() = %d, want 5", len(snap))
	}
	if snap[0].Addr() != "10.0.0.6:1000" {
		t.Errorf("head = %q, want %q", snap[0].Addr(), "10.0.0.6:1000")
	}
	for _, e := range snap {
		if e.Addr() == "10.0.0.1:1000" {
			t.Error("10.0.0.1:1000 should have been evicted")
		}
	}
}

func TestStore_FIFOEvictionAtCapacity100(t *testing.T) {
	s := newTestStore(t, 100, OrderInsertion, false)
	for i := 1; i <= 101; i++ {
		s.Upsert("203.0.113.1", i, "")
	}
	snap := s.Snapshot()
	if len(snap) != 100 {
		t.Fatalf("Len() = %d, want 100", len(snap))
	}
	for i, e := range snap {
		if e.Port != i+2 {
			t.Fatalf("Snapshot()[%d].Port = %d, want %d", i, e.Port, i+2)
		}
	}
}

func TestStore_CapacityNeverExceeded(t *testing.T) {
	tests := []struct {
		name  string
		order Order
	}{
		{name: "insertion", order: OrderInsertion},
		{name: "recency", order: OrderRecency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, 3, tt.order, false)
			for i := 1; i <= 20; i++ {
				s.Upsert("198.51.100.7", 1000+i%7, "")
				if s.Len() > 3 {
					t.Fatalf("Len() = %d after upsert %d, capacity 3", s.Len(), i)
				}
			}
		})
	}
}

func TestStore_RemoveAbsentIsNoOp(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Upsert("192.0.2.1", 2302, "")
	before := addrs(s.Snapshot())

	s.Remove("192.0.2.9", 2302)

	after := addrs(s.Snapshot())
	if len(before) != len(after) {
		t.Fatalf("Snapshot() changed: %v -> %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Snapshot()[%d] changed: %q -> %q", i, before[i], after[i])
		}
	}
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore(t, 10, OrderInsertion, false)
	s.Upsert("a.example", 1, "")
	s.Upsert("b.example", 1, "")
	s.Remove("A.EXAMPLE", 1)
	got := addrs(s.Snapshot())
	if len(got) != 1 || got[0] != "b.example:1" {
		t.Errorf("Snapshot() = %v, want [b.example:1]", got)
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Upsert("a.example", 1, "")
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	// Clearing an empty store is a safe no-op.
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_RenameKeepsPositionAndTimestamp(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Upsert("a.example", 1, "")
	s.Upsert("b.example", 1, "")
	before := s.Snapshot()

	s.Rename("a.example", 1, "renamed")

	after := s.Snapshot()
	if after[0].Addr() != "b.example:1" || after[1].Addr() != "a.example:1" {
		t.Fatalf("Rename reordered entries: %v", addrs(after))
	}
	if after[1].DisplayName != "renamed" {
		t.Errorf("DisplayName = %q, want %q", after[1].DisplayName, "renamed")
	}
	if !after[1].LastContact.Equal(before[1].LastContact) {
		t.Errorf("LastContact changed: %v -> %v", before[1].LastContact, after[1].LastContact)
	}
}

func TestStore_RenameAbsentIsNoOp(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Rename("a.example", 1, "renamed")
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	s := newTestStore(t, 10, OrderRecency, false)
	s.Upsert("a.example", 1, "")
	snap := s.Snapshot()
	snap[0].Host = "mutated"
	if got := s.Snapshot()[0].Host; got != "a.example" {
		t.Errorf("Host = %q after caller mutation, want %q", got, "a.example")
	}
}

func TestStore_PersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	s := New(Options{Name: "test", Path: path, Capacity: 10, Order: OrderInsertion})
	s.Upsert("a.example", 1, "Alpha")
	s.Upsert("b.example", 2, "")

	reloaded := New(Options{Name: "test", Path: path, Capacity: 10, Order: OrderInsertion})
	reloaded.Load()

	want := s.Snapshot()
	got := reloaded.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("reloaded %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Host != want[i].Host || got[i].Port != want[i].Port || got[i].DisplayName != want[i].DisplayName {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].LastContact.Equal(want[i].LastContact) {
			t.Errorf("entry %d LastContact = %v, want %v", i, got[i].LastContact, want[i].LastContact)
		}
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := New(Options{
		Name:     "test",
		Path:     filepath.Join(t.TempDir(), "absent.json"),
		Capacity: 10,
		Order:    OrderRecency,
	})
	s.Load()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestStore_LoadInvalidJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "not json at all"},
		{name: "truncated array", content: `[{"ip": "a.example", "po`},
		{name: "wrong type", content: `{"ip": "a.example"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "corrupt.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			s := New(Options{Name: "test", Path: path, Capacity: 10, Order: OrderRecency})
			s.Load()
			if s.Len() != 0 {
				t.Errorf("Len() = %d, want 0", s.Len())
			}
		})
	}
}

func TestStore_LoadSortsByLastContactWhenConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	content := `[
  {"ip": "old.example", "port": 1, "lastConnected": "2025-01-01T00:00:00Z"},
  {"ip": "new.example", "port": 1, "lastConnected": "2025-03-01T00:00:00Z"},
  {"ip": "mid.example", "port": 1, "lastConnected": "2025-02-01T00:00:00Z"}
]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("sort_on_load", func(t *testing.T) {
		s := New(Options{Name: "history", Path: path, Capacity: 10, Order: OrderRecency, SortOnLoad: true})
		s.Load()
		got := addrs(s.Snapshot())
		want := []string{"new.example:1", "mid.example:1", "old.example:1"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Snapshot()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("preserve_disk_order", func(t *testing.T) {
		s := New(Options{Name: "recent", Path: path, Capacity: 10, Order: OrderRecency})
		s.Load()
		got := addrs(s.Snapshot())
		want := []string{"old.example:1", "new.example:1", "mid.example:1"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Snapshot()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

func TestStore_LoadDropsDuplicatesAndEmptyHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	content := `[
  {"ip": "a.example", "port": 1, "lastConnected": "2025-01-01T00:00:00Z"},
  {"ip": "", "port": 2, "lastConnected": "2025-01-01T00:00:00Z"},
  {"ip": "A.EXAMPLE", "port": 1, "lastConnected": "2025-01-02T00:00:00Z"}
]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(Options{Name: "test", Path: path, Capacity: 10, Order: OrderInsertion})
	s.Load()
	got := addrs(s.Snapshot())
	if len(got) != 1 || got[0] != "a.example:1" {
		t.Errorf("Snapshot() = %v, want [a.example:1]", got)
	}
}

func TestStore_LoadEnforcesCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	content := `[
  {"ip": "a.example", "port": 1, "lastConnected": "2025-01-01T00:00:00Z"},
  {"ip": "b.example", "port": 1, "lastConnected": "2025-01-02T00:00:00Z"},
  {"ip": "c.example", "port": 1, "lastConnected": "2025-01-03T00:00:00Z"}
]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("insertion drops head", func(t *testing.T) {
		s := New(Options{Name: "test", Path: path, Capacity: 2, Order: OrderInsertion})
		s.Load()
		got := addrs(s.Snapshot())
		want := []string{"b.example:1", "c.example:1"}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("Snapshot() = %v, want %v", got, want)
		}
	})

	t.Run("recency drops tail", func(t *testing.T) {
		s := New(Options{Name: "test", Path: path, Capacity: 2, Order: OrderRecency, SortOnLoad: true})
		s.Load()
		got := addrs(s.Snapshot())
		want := []string{"c.example:1", "b.example:1"}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("Snapshot() = %v, want %v", got, want)
		}
	})
}

func TestStore_PersistFailureKeepsInMemoryState(t *testing.T) {
	// Point the store at a path whose parent directory does not exist so
	// every write fails.
	s := New(Options{
		Name:     "test",
		Path:     filepath.Join(t.TempDir(), "missing-dir", "store.json"),
		Capacity: 10,
		Order:    OrderRecency,
	})
	s.Upsert("a.example", 1, "")
	if s.Len() != 1 {
		t.Errorf("Len() = %d after failed persist, want 1", s.Len())
	}
}
