// Package card defines the flashcard data model shared by the review engine
// and the storage backends.
package card

import "time"

// WrongQueueState records whether a card was missed in the current session
// and how many other rounds must pass before it is shown again.
type WrongQueueState struct {
	Queued          bool `json:"queued"`
	RoundsRemaining uint `json:"roundsRemaining"`
}

// Card represents a unit of vocabulary with its review memory state.
// The JSON field names are the on-disk contract; storage backends must
// round-trip them losslessly.
type Card struct {
	ID         string    `json:"id"`
	Front      string    `json:"front"`
	Back       string    `json:"back"`
	Phonetic   string    `json:"phonetic,omitempty"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	FrontAudio string    `json:"frontAudio,omitempty"`
	Examples   []Example `json:"examples,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`

	LastReviewDate     time.Time       `json:"lastReviewDate"`
	NextReviewDate     time.Time       `json:"nextReviewDate"`
	ConsecutiveCorrect int             `json:"consecutiveCorrectAnswersCount"`
	EaseFactor         float64         `json:"easeFactor"`
	WrongQueue         WrongQueueState `json:"wrongQueue"`
	Exp                int64           `json:"exp"`
}

// Clone returns a deep copy of the card. The review engine hands copies to
// callers so that persisted state is only ever changed through the scheduler.
func (c Card) Clone() Card {
	out := c
	if c.Examples != nil {
		out.Examples = make([]Example, len(c.Examples))
		copy(out.Examples, c.Examples)
	}
	return out
}

// UsableExamples returns the examples eligible for sentence-based exercises:
// those with a marked target word and a translation.
func (c Card) UsableExamples() []Example {
	var out []Example
	for _, ex := range c.Examples {
		if ex.Usable() {
			out = append(out, ex)
		}
	}
	return out
}
