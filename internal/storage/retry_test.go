package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/card"
)

// flakyStorage fails upserts until healed.
type flakyStorage struct {
	mu      sync.Mutex
	healthy bool
	cards   map[string]card.Card
}

func newFlakyStorage() *flakyStorage {
	return &flakyStorage{cards: make(map[string]card.Card)}
}

func (f *flakyStorage) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = true
}

func (f *flakyStorage) GetAllCards() ([]card.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]card.Card, 0, len(f.cards))
	for _, c := range f.cards {
		out = append(out, c)
	}
	return out, nil
}

func (f *flakyStorage) GetCard(id string) (card.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok {
		return card.Card{}, ErrCardNotFound
	}
	return c, nil
}

func (f *flakyStorage) UpsertCard(c card.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.healthy {
		return errors.New("backend unavailable")
	}
	f.cards[c.ID] = c
	return nil
}

func (f *flakyStorage) DeleteCard(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cards, id)
	return nil
}

func (f *flakyStorage) Close() error { return nil }

func TestRetryStorageBuffersFailedWrites(t *testing.T) {
	inner := newFlakyStorage()
	rs := NewRetryStorage(inner, time.Hour, zap.NewNop())
	defer rs.Close()

	c := sampleCard("card-1")
	if err := rs.UpsertCard(c); err != nil {
		t.Fatalf("UpsertCard must absorb the failure, got %v", err)
	}
	if rs.PendingWrites() != 1 {
		t.Fatalf("expected 1 buffered write, got %d", rs.PendingWrites())
	}

	// The buffered update is visible to readers even though the backend
	// never saw it.
	got, err := rs.GetCard("card-1")
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if got.ID != "card-1" {
		t.Errorf("expected buffered card, got %+v", got)
	}

	inner.heal()
	rs.Flush()

	if rs.PendingWrites() != 0 {
		t.Fatalf("expected backlog drained after flush, got %d pending", rs.PendingWrites())
	}
	if _, err := inner.GetCard("card-1"); err != nil {
		t.Errorf("card never reached the backend: %v", err)
	}
}

func TestRetryStorageFlushesOnNextSuccessfulWrite(t *testing.T) {
	inner := newFlakyStorage()
	rs := NewRetryStorage(inner, time.Hour, zap.NewNop())
	defer rs.Close()

	if err := rs.UpsertCard(sampleCard("stuck")); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	inner.heal()

	// A later successful write drags the backlog along with it.
	if err := rs.UpsertCard(sampleCard("fresh")); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	if rs.PendingWrites() != 0 {
		t.Fatalf("expected backlog flushed after successful write, got %d pending", rs.PendingWrites())
	}
	if _, err := inner.GetCard("stuck"); err != nil {
		t.Errorf("buffered card never reached the backend: %v", err)
	}
}

func TestRetryStorageOverlaysPendingOnGetAll(t *testing.T) {
	inner := newFlakyStorage()
	inner.heal()
	rs := NewRetryStorage(inner, time.Hour, zap.NewNop())
	defer rs.Close()

	c := sampleCard("card-1")
	if err := rs.UpsertCard(c); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	// Break the backend, write an update that gets buffered.
	inner.mu.Lock()
	inner.healthy = false
	inner.mu.Unlock()

	c.Exp = 999
	if err := rs.UpsertCard(c); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	cards, err := rs.GetAllCards()
	if err != nil {
		t.Fatalf("GetAllCards failed: %v", err)
	}
	if len(cards) != 1 || cards[0].Exp != 999 {
		t.Errorf("expected buffered state overlaid on reads, got %+v", cards)
	}
}
