// Package session drives the per-session review state machine: the queue of
// activities to present, remaining lives, and the wrong-answer requeue.
package session

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/activity"
	"github.com/kioku-srs/kioku/internal/card"
	"github.com/kioku-srs/kioku/internal/review"
)

// State is the orchestrator's position in the session state machine.
type State int

const (
	// StateIdle means no round has started yet.
	StateIdle State = iota
	// StateRoundActive means an activity is dispatched and awaiting an answer.
	StateRoundActive
	// StateRoundScored means the last answer was processed but the next
	// round has not started.
	StateRoundScored
	// StateComplete means both queues drained, the learner aborted, or no
	// activity could be built from the remaining collection.
	StateComplete
	// StateFailed means lives reached zero.
	StateFailed
)

// String returns the state's wire name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRoundActive:
		return "round_active"
	case StateRoundScored:
		return "round_scored"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// EndReason explains why a session reached StateComplete.
type EndReason string

const (
	// ReasonFinished means both queues drained normally.
	ReasonFinished EndReason = "finished"
	// ReasonAborted means the learner exited early; no penalty applied.
	ReasonAborted EndReason = "aborted"
	// ReasonExhausted means the collection could not produce any further
	// activity (for example, too few cards for distractors).
	ReasonExhausted EndReason = "exhausted"
)

// Config holds the session policy knobs.
type Config struct {
	// Lives is how many incorrect answers end the session.
	Lives int `koanf:"lives" validate:"gt=0"`
	// RequeueDistance is how many other rounds pass before a missed card
	// is shown again.
	RequeueDistance uint `koanf:"requeue_distance" validate:"gt=0"`
	// Kinds is the exercise-kind rotation tried per card, in order.
	Kinds []activity.Kind
}

// DefaultConfig returns the stock session policy.
func DefaultConfig() Config {
	return Config{
		Lives:           3,
		RequeueDistance: 3,
		Kinds:           activity.DefaultKinds,
	}
}

// CardWriter persists one card's updated memory state. Write failures must
// not block session progress; implementations are expected to absorb and
// retry them.
type CardWriter interface {
	UpsertCard(card.Card) error
}

// Feedback is the display payload handed back to the renderer after each
// answer. It is opaque to the engine beyond construction.
type Feedback struct {
	Correct  bool          `json:"correct"`
	Front    string        `json:"front"`
	Back     string        `json:"back"`
	Phonetic string        `json:"phonetic,omitempty"`
	Example  *card.Example `json:"example,omitempty"`
	Exp      int64         `json:"exp"`
}

var (
	// ErrNotRoundActive is returned when Submit is called outside an
	// active round.
	ErrNotRoundActive = errors.New("no round is awaiting an answer")
	// ErrFrozen is returned when Advance is called before the wrong-answer
	// feedback was acknowledged.
	ErrFrozen = errors.New("session is frozen awaiting feedback acknowledgement")
	// ErrSessionOver is returned for any action on a finished session.
	ErrSessionOver = errors.New("session has ended")
)

type wrongEntry struct {
	c         card.Card
	remaining uint
}

// Session owns one practice run. It is not safe for concurrent use; rounds
// are strictly sequential by design.
type Session struct {
	cfg   Config
	gen   *activity.Generator
	sched review.Scheduler
	repo  CardWriter
	log   *zap.Logger

	pool    []card.Card // full collection, distractor source
	queue   []card.Card // due cards not yet answered this session
	wrong   []wrongEntry
	current *activity.Activity

	state  State
	reason EndReason
	frozen bool
	round  int
	lives  int
}

// Start creates a session over the given collection. The due queue is
// selected and ordered from cards at now; an empty due set yields a session
// already in StateComplete with no first activity, which is a valid outcome
// rather than an error.
func Start(cards []card.Card, now time.Time, cfg Config, gen *activity.Generator, sched review.Scheduler, repo CardWriter, log *zap.Logger) (*Session, *activity.Activity, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		cfg:   cfg,
		gen:   gen,
		sched: sched,
		repo:  repo,
		log:   log,
		pool:  cards,
		queue: review.SelectDue(cards, now),
		state: StateIdle,
		lives: cfg.Lives,
	}

	s.log.Debug("session starting",
		zap.Int("collection_size", len(cards)),
		zap.Int("due_count", len(s.queue)),
		zap.Int("lives", s.lives))

	if len(s.queue) == 0 {
		s.state = StateComplete
		s.reason = ReasonFinished
		return s, nil, nil
	}

	act := s.nextActivity()
	if act == nil {
		// Nothing in the collection can produce an activity.
		s.state = StateComplete
		s.reason = ReasonExhausted
		return s, nil, nil
	}
	s.current = act
	s.state = StateRoundActive
	return s, act, nil
}

// State returns the current machine state.
func (s *Session) State() State { return s.state }

// EndReason explains a StateComplete session.
func (s *Session) EndReason() EndReason { return s.reason }

// Lives returns the remaining lives.
func (s *Session) Lives() int { return s.lives }

// Round returns the number of completed rounds.
func (s *Session) Round() int { return s.round }

// Frozen reports whether input is locked pending feedback acknowledgement.
func (s *Session) Frozen() bool { return s.frozen }

// Remaining returns how many cards are still waiting in the due queue and
// the wrong queue.
func (s *Session) Remaining() (due, wrong int) {
	return len(s.queue), len(s.wrong)
}

// Current returns the activity awaiting an answer, or nil.
func (s *Session) Current() *activity.Activity {
	if s.state != StateRoundActive {
		return nil
	}
	return s.current
}

// Submit scores the active round. The scheduler runs exactly once for the
// answered card and the update is written through the repository. On an
// incorrect answer the session freezes until Acknowledge and the card is
// wrong-queued; a second miss while queued resets its counter rather than
// stacking a second entry.
func (s *Session) Submit(correct bool, now time.Time) (Feedback, error) {
	if s.state != StateRoundActive || s.current == nil {
		if s.state == StateComplete || s.state == StateFailed {
			return Feedback{}, ErrSessionOver
		}
		return Feedback{}, ErrNotRoundActive
	}

	main := s.current.Main
	updated := s.sched.Update(main, review.Outcome{Correct: correct}, now)

	wasQueued := s.wrongIndex(main.ID) >= 0
	if correct {
		if wasQueued {
			// Successfully re-answered: clear the requeue state.
			s.removeWrong(main.ID)
		}
		updated.WrongQueue = card.WrongQueueState{}
	} else {
		s.lives--
		updated.WrongQueue = card.WrongQueueState{Queued: true, RoundsRemaining: s.cfg.RequeueDistance}
		if wasQueued {
			s.wrong[s.wrongIndex(main.ID)] = wrongEntry{c: updated, remaining: s.cfg.RequeueDistance}
		} else {
			s.wrong = append(s.wrong, wrongEntry{c: updated, remaining: s.cfg.RequeueDistance})
		}
		s.frozen = true
	}

	// The scored round counts as an elapsed round for every other card
	// waiting in the wrong queue.
	for i := range s.wrong {
		if s.wrong[i].c.ID != main.ID && s.wrong[i].remaining > 0 {
			s.wrong[i].remaining--
		}
	}

	s.persist(updated)
	s.refreshPool(updated)
	s.round++
	s.current = nil
	s.state = StateRoundScored

	s.log.Debug("round scored",
		zap.String("card_id", main.ID),
		zap.Bool("correct", correct),
		zap.Int("round", s.round),
		zap.Int("lives", s.lives),
		zap.Int("wrong_queue", len(s.wrong)))

	if s.lives <= 0 {
		s.state = StateFailed
		s.frozen = false
	}

	fb := Feedback{
		Correct:  correct,
		Front:    main.Front,
		Back:     main.Back,
		Phonetic: main.Phonetic,
		Exp:      updated.Exp,
	}
	if len(main.Examples) > 0 {
		ex := main.Examples[0]
		fb.Example = &ex
	}
	return fb, nil
}

// Acknowledge unlocks the session after wrong-answer feedback was shown.
func (s *Session) Acknowledge() {
	s.frozen = false
}

// Advance starts the next round. It refuses while frozen and prefers a
// ripe wrong card over the regular due queue as the next main card.
func (s *Session) Advance() (*activity.Activity, error) {
	switch s.state {
	case StateComplete, StateFailed:
		return nil, ErrSessionOver
	case StateRoundScored:
	default:
		return nil, ErrNotRoundActive
	}
	if s.frozen {
		return nil, ErrFrozen
	}

	if len(s.queue) == 0 && len(s.wrong) == 0 {
		s.state = StateComplete
		s.reason = ReasonFinished
		return nil, nil
	}

	act := s.nextActivity()
	if act == nil {
		s.state = StateComplete
		s.reason = ReasonExhausted
		s.log.Warn("no activity could be generated from the remaining collection")
		return nil, nil
	}
	s.current = act
	s.state = StateRoundActive
	return act, nil
}

// Abort ends the session early without penalty. The in-flight round's
// outcome, if any, is discarded.
func (s *Session) Abort() {
	if s.state == StateComplete || s.state == StateFailed {
		return
	}
	s.current = nil
	s.frozen = false
	s.state = StateComplete
	s.reason = ReasonAborted
	s.log.Debug("session aborted", zap.Int("rounds_completed", s.round))
}

// nextActivity picks the next main card (ripe wrong cards first, then the
// due queue) and builds an activity for it, falling back across exercise
// kinds and skipping cards that cannot produce one.
func (s *Session) nextActivity() *activity.Activity {
	// A wrong card whose counter reached zero jumps the queue.
	for i := range s.wrong {
		if s.wrong[i].remaining == 0 {
			if act := s.generateFor(s.wrong[i].c); act != nil {
				return act
			}
			// Unbuildable wrong card: drop it rather than wedging the session.
			s.log.Warn("dropping wrong-queued card with no workable activity",
				zap.String("card_id", s.wrong[i].c.ID))
			s.wrong = append(s.wrong[:i], s.wrong[i+1:]...)
			return s.nextActivity()
		}
	}

	for len(s.queue) > 0 {
		main := s.queue[0]
		s.queue = s.queue[1:]
		if act := s.generateFor(main); act != nil {
			return act
		}
		s.log.Warn("skipping card with no workable activity", zap.String("card_id", main.ID))
	}

	// Only wrong cards remain but none is ripe: let the nearest one retry
	// early instead of ending the session with pending corrections.
	if len(s.wrong) > 0 {
		min := 0
		for i := range s.wrong {
			if s.wrong[i].remaining < s.wrong[min].remaining {
				min = i
			}
		}
		s.wrong[min].remaining = 0
		return s.nextActivity()
	}

	return nil
}

// generateFor tries the configured kind rotation for one card, treating
// generator errors as recoverable per-kind failures.
func (s *Session) generateFor(main card.Card) *activity.Activity {
	kinds := s.cfg.Kinds
	if len(kinds) == 0 {
		kinds = activity.DefaultKinds
	}
	for _, kind := range kinds {
		act, err := s.gen.Generate(main, s.pool, kind)
		if err == nil {
			return &act
		}
		if errors.Is(err, activity.ErrNoEligibleExample) || errors.Is(err, activity.ErrInsufficientDistractors) {
			s.log.Debug("exercise kind not buildable for card",
				zap.String("card_id", main.ID),
				zap.String("kind", kind.String()),
				zap.Error(err))
			continue
		}
		s.log.Warn("activity generation failed",
			zap.String("card_id", main.ID),
			zap.String("kind", kind.String()),
			zap.Error(err))
	}
	return nil
}

// persist writes one card's update through the repository. Failures are
// logged only; the in-memory session copy stays authoritative and the
// repository layer retries opportunistically.
func (s *Session) persist(c card.Card) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpsertCard(c); err != nil {
		s.log.Warn("card write failed, continuing with in-memory state",
			zap.String("card_id", c.ID),
			zap.Error(err))
	}
}

// refreshPool keeps the distractor pool in step with scheduler updates so a
// retried card is generated from its current state.
func (s *Session) refreshPool(c card.Card) {
	for i := range s.pool {
		if s.pool[i].ID == c.ID {
			s.pool[i] = c
			return
		}
	}
}

func (s *Session) wrongIndex(id string) int {
	for i := range s.wrong {
		if s.wrong[i].c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) removeWrong(id string) {
	if i := s.wrongIndex(id); i >= 0 {
		s.wrong = append(s.wrong[:i], s.wrong[i+1:]...)
	}
}
