package review

import (
	"math"
	"time"

	"github.com/kioku-srs/kioku/internal/card"
)

// Outcome is the result of one review round for one card.
type Outcome struct {
	Correct bool
}

// Scheduler maps (card, outcome, now) to the card's updated memory state.
// It is deterministic and side-effect-free; all randomness lives in the
// activity generator.
type Scheduler struct {
	params Parameters
}

// NewScheduler creates a scheduler with the given policy parameters.
func NewScheduler(params Parameters) Scheduler {
	return Scheduler{params: params}
}

// Params returns the policy parameters the scheduler was built with.
func (s Scheduler) Params() Parameters {
	return s.params
}

// Update returns a copy of the card with its memory fields advanced for the
// given outcome. NextReviewDate is always now plus a positive interval, so
// NextReviewDate >= LastReviewDate holds after every update.
func (s Scheduler) Update(c card.Card, outcome Outcome, now time.Time) card.Card {
	updated := c.Clone()
	updated.LastReviewDate = now

	if outcome.Correct {
		updated.ConsecutiveCorrect = c.ConsecutiveCorrect + 1
		updated.EaseFactor = math.Min(c.EaseFactor+s.params.EaseBonus, s.params.EaseCeiling)
		updated.NextReviewDate = now.Add(s.interval(updated.ConsecutiveCorrect, updated.EaseFactor))
		updated.Exp = c.Exp + s.params.CorrectReward
		return updated
	}

	updated.ConsecutiveCorrect = 0
	updated.EaseFactor = math.Max(c.EaseFactor-s.params.EasePenalty, s.params.EaseFloor)
	updated.NextReviewDate = now.Add(s.params.MinInterval)
	return updated
}

// interval computes baseInterval * ease^streak, bounded by MaxInterval.
func (s Scheduler) interval(streak int, ease float64) time.Duration {
	growth := math.Pow(ease, float64(streak))
	scaled := float64(s.params.BaseInterval) * growth
	if scaled > float64(s.params.MaxInterval) {
		return s.params.MaxInterval
	}
	return time.Duration(scaled)
}
