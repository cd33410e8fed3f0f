package dedupe

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ugboard/yt-pull/app/database"
	"github.com/ugboard/yt-pull/app/feed"
)

type fakeStore struct {
	mu     sync.Mutex
	seen   map[string]bool
	marked []database.SeenKey
	fail   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool)}
}

func (s *fakeStore) IsSeen(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return false, errors.New("store unavailable")
	}
	return s.seen[key], nil
}

func (s *fakeStore) MarkSeen(keys []database.SeenKey, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store unavailable")
	}
	for _, k := range keys {
		s.seen[k.Key] = true
	}
	s.marked = append(s.marked, keys...)
	return nil
}

func (s *fakeStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen), nil
}

func (s *fakeStore) PurgeExpired() (int64, error) {
	return 0, nil
}

func record(id string) feed.Record {
	return feed.Record{
		Source:      "youtube",
		ExternalID:  id,
		Title:       "Video " + id,
		PublishedAt: "2024-06-01T10:00:00Z",
		ChannelID:   "UCtest",
	}
}

func TestAdmit_IntraRun(t *testing.T) {
	d := New(nil)

	if !d.Admit(record("one")) {
		t.Error("Expected first occurrence to be admitted")
	}
	if d.Admit(record("one")) {
		t.Error("Expected repeat occurrence to be dropped")
	}
	if !d.Admit(record("two")) {
		t.Error("Expected distinct key to be admitted")
	}
}

func TestAdmit_ExactlyOncePerKey(t *testing.T) {
	d := New(nil)

	ids := []string{"a", "b", "a", "c", "b", "a", "c", "c"}
	admitted := 0
	for _, id := range ids {
		if d.Admit(record(id)) {
			admitted++
		}
	}

	if admitted != 3 {
		t.Errorf("Expected exactly 3 admitted records for 3 unique keys, got %d", admitted)
	}
}

func TestAdmit_DurableLayer(t *testing.T) {
	store := newFakeStore()
	store.seen["youtube:known"] = true

	d := New(store)

	if d.Admit(record("known")) {
		t.Error("Expected durably seen key to be dropped")
	}
	if !d.Admit(record("fresh")) {
		t.Error("Expected unknown key to be admitted")
	}
}

func TestAdmit_StoreFailureIsAdvisory(t *testing.T) {
	store := newFakeStore()
	store.fail = true

	d := New(store)

	if !d.Admit(record("one")) {
		t.Error("Expected admission when the durable store is unavailable")
	}
}

func TestMarkForwarded(t *testing.T) {
	store := newFakeStore()
	d := New(store)

	d.MarkForwarded([]feed.Record{record("one"), record("two")}, 24*time.Hour)

	if len(store.marked) != 2 {
		t.Fatalf("Expected 2 marked keys, got %d", len(store.marked))
	}
	if store.marked[0].Key != "youtube:one" {
		t.Errorf("Expected key 'youtube:one', got '%s'", store.marked[0].Key)
	}
	if store.marked[0].ChannelID != "UCtest" {
		t.Errorf("Expected channel id 'UCtest', got '%s'", store.marked[0].ChannelID)
	}
}

func TestMarkForwarded_StoreFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	d := New(store)

	// Must not panic or surface the error.
	d.MarkForwarded([]feed.Record{record("one")}, 24*time.Hour)
}

func TestAdmit_Concurrent(t *testing.T) {
	d := New(nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Admit(record("contended")) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("Expected exactly 1 admission under concurrency, got %d", admitted)
	}
}
