// Package activity turns due cards into concrete quiz activities with
// distractors drawn from the rest of the collection.
package activity

import (
	"errors"

	"github.com/kioku-srs/kioku/internal/card"
)

// Kind identifies the exercise type an activity is rendered as.
type Kind int

const (
	// KindChoice shows the front and asks the learner to pick the back.
	KindChoice Kind = iota
	// KindReverseChoice shows the back and asks for the front.
	KindReverseChoice
	// KindSentenceFill is a cloze exercise over one of the card's examples.
	KindSentenceFill
	// KindPairing asks the learner to match fronts to backs.
	KindPairing
)

// String returns the kind's wire name.
func (k Kind) String() string {
	switch k {
	case KindChoice:
		return "choice"
	case KindReverseChoice:
		return "reverse_choice"
	case KindSentenceFill:
		return "sentence_fill"
	case KindPairing:
		return "pairing"
	}
	return "unknown"
}

// DefaultKinds is the rotation order the session orchestrator tries when
// building an activity for a card.
var DefaultKinds = []Kind{KindChoice, KindReverseChoice, KindSentenceFill, KindPairing}

var (
	// ErrInsufficientDistractors means the pool had too few cards with
	// fronts and backs distinct from the main card and from each other.
	// Recoverable: try a different kind or skip the card for this session.
	ErrInsufficientDistractors = errors.New("insufficient eligible distractor cards")
	// ErrNoEligibleExample means the main card has no usable example
	// sentence for a sentence-based exercise. Recoverable the same way.
	ErrNoEligibleExample = errors.New("no eligible example sentence")
)

// Activity is one round's worth of quiz material. It is session-scoped and
// never persisted.
type Activity struct {
	Main   card.Card
	Others []card.Card
	Kind   Kind

	// Options is the shuffled presentation order: the main card plus the
	// distractors. CorrectIndex locates the main card within it.
	Options      []card.Card
	CorrectIndex int

	// Example is set for sentence-based kinds.
	Example *card.Example
}
