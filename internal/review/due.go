package review

import (
	"sort"
	"time"

	"github.com/kioku-srs/kioku/internal/card"
)

// SelectDue returns the cards whose NextReviewDate has passed, earliest due
// first with ties broken by the weaker streak. An empty result means nothing
// is due right now; it is not an error. The input slice is never mutated.
func SelectDue(cards []card.Card, now time.Time) []card.Card {
	var due []card.Card
	for _, c := range cards {
		if !c.NextReviewDate.After(now) {
			due = append(due, c.Clone())
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextReviewDate.Equal(due[j].NextReviewDate) {
			return due[i].NextReviewDate.Before(due[j].NextReviewDate)
		}
		return due[i].ConsecutiveCorrect < due[j].ConsecutiveCorrect
	})

	return due
}
