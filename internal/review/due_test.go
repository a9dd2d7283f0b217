package review

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kioku-srs/kioku/internal/card"
)

func TestSelectDueFiltersByNextReviewDate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cards := []card.Card{
		{ID: "past", NextReviewDate: now.Add(-time.Hour)},
		{ID: "exact", NextReviewDate: now},
		{ID: "future", NextReviewDate: now.Add(time.Minute)},
	}

	due := SelectDue(cards, now)

	ids := make([]string, len(due))
	for i, c := range due {
		ids[i] = c.ID
	}
	want := []string{"past", "exact"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("SelectDue mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectDueOrdering(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cards := []card.Card{
		{ID: "late-strong", NextReviewDate: now.Add(-time.Hour), ConsecutiveCorrect: 5},
		{ID: "early", NextReviewDate: now.Add(-3 * time.Hour), ConsecutiveCorrect: 9},
		{ID: "late-weak", NextReviewDate: now.Add(-time.Hour), ConsecutiveCorrect: 1},
	}

	due := SelectDue(cards, now)

	ids := make([]string, len(due))
	for i, c := range due {
		ids[i] = c.ID
	}
	// Earliest due first, ties broken by lowest streak.
	want := []string{"early", "late-weak", "late-strong"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("SelectDue order mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectDueEmptyIsNotAnError(t *testing.T) {
	now := time.Now()
	cards := []card.Card{
		{ID: "future", NextReviewDate: now.Add(time.Hour)},
	}

	due := SelectDue(cards, now)
	if len(due) != 0 {
		t.Fatalf("expected empty due set, got %d cards", len(due))
	}

	due = SelectDue(nil, now)
	if len(due) != 0 {
		t.Fatalf("expected empty due set for nil input, got %d cards", len(due))
	}
}

func TestSelectDueDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	cards := []card.Card{
		{ID: "b", NextReviewDate: now.Add(-time.Minute)},
		{ID: "a", NextReviewDate: now.Add(-time.Hour)},
	}
	before := []card.Card{cards[0].Clone(), cards[1].Clone()}

	SelectDue(cards, now)

	if diff := cmp.Diff(before, cards); diff != "" {
		t.Errorf("input cards were mutated (-want +got):\n%s", diff)
	}
}
