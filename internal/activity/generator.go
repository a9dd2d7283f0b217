package activity

import (
	"math/rand"

	"github.com/kioku-srs/kioku/internal/card"
)

// Generator builds activities from a main card and a distractor pool. The
// random source is injectable so tests can assert deterministic output.
type Generator struct {
	rng             *rand.Rand
	distractorCount int
}

// NewGenerator creates a generator drawing the given number of distractors
// per activity from src.
func NewGenerator(distractorCount int, src rand.Source) *Generator {
	return &Generator{
		rng:             rand.New(src),
		distractorCount: distractorCount,
	}
}

// DistractorCount returns how many distractors each activity carries.
func (g *Generator) DistractorCount() int {
	return g.distractorCount
}

// Generate builds an activity of the given kind for main, drawing
// distractors uniformly without replacement from pool. A distractor's front
// and back must differ from the main card's and from every other chosen
// distractor's, so multiple-choice answers are never ambiguous.
func (g *Generator) Generate(main card.Card, pool []card.Card, kind Kind) (Activity, error) {
	act := Activity{Main: main.Clone(), Kind: kind}

	if kind == KindSentenceFill {
		usable := main.UsableExamples()
		if len(usable) == 0 {
			return Activity{}, ErrNoEligibleExample
		}
		ex := usable[g.rng.Intn(len(usable))]
		act.Example = &ex
	}

	others, err := g.pickDistractors(main, pool)
	if err != nil {
		return Activity{}, err
	}
	act.Others = others

	// Shuffle the presented options so the correct position is not
	// predictable, and record where the main card landed.
	options := make([]card.Card, 0, len(others)+1)
	options = append(options, act.Main)
	options = append(options, others...)
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	for i, opt := range options {
		if opt.ID == main.ID {
			act.CorrectIndex = i
			break
		}
	}
	act.Options = options

	return act, nil
}

// pickDistractors selects distractorCount cards uniformly without
// replacement from the eligible subset of pool.
func (g *Generator) pickDistractors(main card.Card, pool []card.Card) ([]card.Card, error) {
	eligible := make([]card.Card, 0, len(pool))
	seenFront := map[string]bool{main.Front: true}
	seenBack := map[string]bool{main.Back: true}
	for _, c := range pool {
		if c.ID == main.ID || seenFront[c.Front] || seenBack[c.Back] {
			continue
		}
		seenFront[c.Front] = true
		seenBack[c.Back] = true
		eligible = append(eligible, c.Clone())
	}

	if len(eligible) < g.distractorCount {
		return nil, ErrInsufficientDistractors
	}

	g.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	return eligible[:g.distractorCount], nil
}
