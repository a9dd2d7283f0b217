package card

import (
	"errors"
	"strings"
)

// Marker delimits the target word inside an example sentence on both sides,
// e.g. "I drink #water# every day.".
const Marker = "#"

// ErrMalformedExampleData is returned when stored example data fails to
// validate. Callers recover by treating the card as having zero examples.
var ErrMalformedExampleData = errors.New("malformed example data")

// Example is an authored sentence pair illustrating a card's word. It is
// immutable once authored; the review engine never mutates it.
type Example struct {
	Question            string `json:"question"`
	QuestionPhonetic    string `json:"questionPhonetic,omitempty"`
	QuestionTranslation string `json:"questionTranslation,omitempty"`
	QuestionAudio       string `json:"questionAudio,omitempty"`
	Answer              string `json:"answer"`
	AnswerPhonetic      string `json:"answerPhonetic,omitempty"`
	AnswerAudio         string `json:"answerAudio,omitempty"`
	Translation         string `json:"translation,omitempty"`
}

// Target returns the marker-delimited word under test, searching the
// question first and then the answer. The second return is false when
// neither sentence carries a properly delimited target.
func (e Example) Target() (string, bool) {
	if w, ok := extractTarget(e.Question); ok {
		return w, true
	}
	return extractTarget(e.Answer)
}

// Usable reports whether the example can back a sentence-fill exercise:
// it must carry a marked target word and a translation.
func (e Example) Usable() bool {
	_, ok := e.Target()
	return ok && e.Translation != ""
}

// Validate checks that the example is structurally sound.
func (e Example) Validate() error {
	if e.Question == "" && e.Answer == "" {
		return ErrMalformedExampleData
	}
	// A lone marker (or an odd number of them) means the target word is not
	// delimited on both sides.
	if oddMarkers(e.Question) || oddMarkers(e.Answer) {
		return ErrMalformedExampleData
	}
	return nil
}

// ValidateExamples validates a card's examples once at the repository
// boundary. It returns the subset that parsed cleanly and an error when
// anything had to be dropped, so the caller can log the degradation.
func ValidateExamples(examples []Example) ([]Example, error) {
	var kept []Example
	dropped := 0
	for _, ex := range examples {
		if err := ex.Validate(); err != nil {
			dropped++
			continue
		}
		kept = append(kept, ex)
	}
	if dropped > 0 {
		return kept, ErrMalformedExampleData
	}
	return kept, nil
}

func extractTarget(s string) (string, bool) {
	start := strings.Index(s, Marker)
	if start < 0 {
		return "", false
	}
	rest := s[start+len(Marker):]
	end := strings.Index(rest, Marker)
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}

func oddMarkers(s string) bool {
	return strings.Count(s, Marker)%2 == 1
}
