package review

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/kioku-srs/kioku/internal/card"
)

// genOutcomes produces arbitrary answer sequences.
func genOutcomes() gopter.Gen {
	return gen.SliceOf(gen.Bool())
}

func genStartCard() gopter.Gen {
	return gen.Struct(reflect.TypeOf(card.Card{}), map[string]gopter.Gen{
		"ID":                 gen.Identifier(),
		"EaseFactor":         gen.Float64Range(1.3, 2.5),
		"ConsecutiveCorrect": gen.IntRange(0, 20),
		"Exp":                gen.Int64Range(0, 100000),
	})
}

func TestSchedulerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	sched := NewScheduler(DefaultParameters())
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	properties.Property("nextReviewDate is never before now", prop.ForAll(
		func(c card.Card, outcomes []bool) bool {
			now := start
			for _, correct := range outcomes {
				c = sched.Update(c, Outcome{Correct: correct}, now)
				if c.NextReviewDate.Before(now) {
					return false
				}
				now = now.Add(time.Hour)
			}
			return true
		},
		genStartCard(),
		genOutcomes(),
	))

	properties.Property("easeFactor never drops below the floor", prop.ForAll(
		func(c card.Card, outcomes []bool) bool {
			now := start
			for _, correct := range outcomes {
				c = sched.Update(c, Outcome{Correct: correct}, now)
				if c.EaseFactor < sched.Params().EaseFloor {
					return false
				}
				now = now.Add(time.Hour)
			}
			return true
		},
		genStartCard(),
		genOutcomes(),
	))

	properties.Property("an incorrect answer always resets the streak", prop.ForAll(
		func(c card.Card) bool {
			updated := sched.Update(c, Outcome{Correct: false}, start)
			return updated.ConsecutiveCorrect == 0
		},
		genStartCard(),
	))

	properties.Property("exp is monotonically non-decreasing", prop.ForAll(
		func(c card.Card, outcomes []bool) bool {
			now := start
			prev := c.Exp
			for _, correct := range outcomes {
				c = sched.Update(c, Outcome{Correct: correct}, now)
				if c.Exp < prev {
					return false
				}
				prev = c.Exp
				now = now.Add(time.Hour)
			}
			return true
		},
		genStartCard(),
		genOutcomes(),
	))

	properties.TestingRun(t)
}
