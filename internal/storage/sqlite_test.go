package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/card"
)

func openTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test-cards.db")
	db, err := OpenSQLite(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteRoundTrip(t *testing.T) {
	db := openTestDB(t)

	want := sampleCard("card-1")
	if err := db.UpsertCard(want); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	got, err := db.GetCard("card-1")
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("card did not round-trip (-want +got):\n%s", diff)
	}
}

func TestSQLiteUpsertReplaces(t *testing.T) {
	db := openTestDB(t)

	c := sampleCard("card-1")
	if err := db.UpsertCard(c); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	c.EaseFactor = 1.3
	c.ConsecutiveCorrect = 0
	c.WrongQueue = card.WrongQueueState{Queued: true, RoundsRemaining: 3}
	if err := db.UpsertCard(c); err != nil {
		t.Fatalf("second UpsertCard failed: %v", err)
	}

	cards, err := db.GetAllCards()
	if err != nil {
		t.Fatalf("GetAllCards failed: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].EaseFactor != 1.3 || !cards[0].WrongQueue.Queued {
		t.Errorf("upsert did not replace card state: %+v", cards[0])
	}
}

func TestSQLiteGetCardNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetCard("missing")
	if !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestSQLiteDeleteCard(t *testing.T) {
	db := openTestDB(t)

	if err := db.UpsertCard(sampleCard("card-1")); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	if err := db.DeleteCard("card-1"); err != nil {
		t.Fatalf("DeleteCard failed: %v", err)
	}
	if err := db.DeleteCard("card-1"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound on double delete, got %v", err)
	}
}

func TestSQLiteGetAllOrderedByDue(t *testing.T) {
	db := openTestDB(t)

	a := sampleCard("card-a")
	b := sampleCard("card-b")
	b.NextReviewDate = a.NextReviewDate.Add(-48 * time.Hour)
	if err := db.UpsertCard(a); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	if err := db.UpsertCard(b); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}

	cards, err := db.GetAllCards()
	if err != nil {
		t.Fatalf("GetAllCards failed: %v", err)
	}
	if len(cards) != 2 || cards[0].ID != "card-b" {
		t.Errorf("expected card-b (earlier due) first, got %+v", cards)
	}
}
