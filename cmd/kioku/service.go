package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kioku-srs/kioku/internal/activity"
	"github.com/kioku-srs/kioku/internal/card"
	"github.com/kioku-srs/kioku/internal/config"
	"github.com/kioku-srs/kioku/internal/deck"
	"github.com/kioku-srs/kioku/internal/review"
	"github.com/kioku-srs/kioku/internal/session"
	"github.com/kioku-srs/kioku/internal/storage"
)

// ErrNoActiveSession is returned when a session operation arrives while no
// session is running.
var ErrNoActiveSession = errors.New("no active session")

// ReviewService wires storage, the scheduler and the session orchestrator
// behind the MCP tool handlers. One session is active at a time; rounds are
// strictly sequential.
type ReviewService struct {
	Storage   storage.Storage
	Scheduler review.Scheduler
	Logger    *zap.Logger

	cfg     config.Config
	randSrc rand.Source
	sess    *session.Session
	clock   func() time.Time
}

// NewReviewService creates a service over the given storage with the given
// configuration.
func NewReviewService(store storage.Storage, cfg config.Config) *ReviewService {
	logConfig := zap.NewDevelopmentConfig()
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		logConfig.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := logConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		fmt.Printf("Error initializing zap logger: %v. Falling back to no-op logger.\n", err)
		logger = zap.NewNop()
	}

	return &ReviewService{
		Storage:   store,
		Scheduler: review.NewScheduler(cfg.Review),
		Logger:    logger,
		cfg:       cfg,
		randSrc:   rand.NewSource(time.Now().UnixNano()),
		clock:     time.Now,
	}
}

// StartSession begins a practice session over the whole collection. An
// empty due set yields a completed session with no activity, not an error.
// A session already in progress is replaced only if it has ended.
func (s *ReviewService) StartSession() (StartSessionResponse, error) {
	if s.sess != nil {
		switch s.sess.State() {
		case session.StateComplete, session.StateFailed:
			// Finished; fall through and start fresh.
		default:
			return StartSessionResponse{}, errors.New("a session is already in progress")
		}
	}

	cards, err := s.Storage.GetAllCards()
	if err != nil {
		return StartSessionResponse{}, fmt.Errorf("error listing cards: %w", err)
	}

	now := s.clock()
	gen := activity.NewGenerator(s.cfg.Session.DistractorCount, s.randSrc)
	sessCfg := session.Config{
		Lives:           s.cfg.Session.Lives,
		RequeueDistance: s.cfg.Session.RequeueDistance,
		Kinds:           activity.DefaultKinds,
	}

	sess, act, err := session.Start(cards, now, sessCfg, gen, s.Scheduler, s.Storage, s.Logger)
	if err != nil {
		return StartSessionResponse{}, fmt.Errorf("error starting session: %w", err)
	}
	s.sess = sess

	s.Logger.Debug("session started",
		zap.Int("collection_size", len(cards)),
		zap.String("state", sess.State().String()))

	return StartSessionResponse{
		Status:   s.status(),
		Activity: viewOf(act),
	}, nil
}

// CurrentActivity returns the activity awaiting an answer, advancing to the
// next round first when the previous one is scored.
func (s *ReviewService) CurrentActivity() (AdvanceResponse, error) {
	if s.sess == nil {
		return AdvanceResponse{}, ErrNoActiveSession
	}

	if act := s.sess.Current(); act != nil {
		return AdvanceResponse{Status: s.status(), Activity: viewOf(act)}, nil
	}

	if s.sess.State() == session.StateRoundScored {
		act, err := s.sess.Advance()
		if err != nil {
			return AdvanceResponse{Status: s.status()}, err
		}
		return AdvanceResponse{Status: s.status(), Activity: viewOf(act)}, nil
	}

	return AdvanceResponse{Status: s.status()}, nil
}

// SubmitAnswer scores the active round.
func (s *ReviewService) SubmitAnswer(correct bool) (SubmitAnswerResponse, error) {
	if s.sess == nil {
		return SubmitAnswerResponse{}, ErrNoActiveSession
	}
	fb, err := s.sess.Submit(correct, s.clock())
	if err != nil {
		return SubmitAnswerResponse{Status: s.status()}, err
	}
	return SubmitAnswerResponse{Feedback: fb, Status: s.status()}, nil
}

// AcknowledgeFeedback unfreezes the session after a wrong answer's feedback
// was shown.
func (s *ReviewService) AcknowledgeFeedback() (SessionStatus, error) {
	if s.sess == nil {
		return SessionStatus{}, ErrNoActiveSession
	}
	s.sess.Acknowledge()
	return s.status(), nil
}

// AbortSession ends the session early without penalty.
func (s *ReviewService) AbortSession() (SessionStatus, error) {
	if s.sess == nil {
		return SessionStatus{}, ErrNoActiveSession
	}
	s.sess.Abort()
	return s.status(), nil
}

// SessionStatus reports the current session's position.
func (s *ReviewService) SessionStatus() (SessionStatus, error) {
	if s.sess == nil {
		return SessionStatus{}, ErrNoActiveSession
	}
	return s.status(), nil
}

// CreateCard creates a new card, due immediately.
func (s *ReviewService) CreateCard(front, back, phonetic, imageURL, frontAudio string) (card.Card, error) {
	s.Logger.Debug("CreateCard called", zap.String("front", front), zap.String("back", back))
	now := s.clock()
	c := card.Card{
		ID:             uuid.New().String(),
		Front:          front,
		Back:           back,
		Phonetic:       phonetic,
		ImageURL:       imageURL,
		FrontAudio:     frontAudio,
		CreatedAt:      now,
		LastReviewDate: now,
		NextReviewDate: now,
		EaseFactor:     review.InitialEase,
	}
	if err := s.Storage.UpsertCard(c); err != nil {
		s.Logger.Error("error creating card in storage", zap.Error(err))
		return card.Card{}, fmt.Errorf("error creating card in storage: %w", err)
	}
	return c, nil
}

// ListCards returns the whole collection with summary statistics.
func (s *ReviewService) ListCards() ([]card.Card, CollectionStats, error) {
	cards, err := s.Storage.GetAllCards()
	if err != nil {
		return nil, CollectionStats{}, fmt.Errorf("error listing cards: %w", err)
	}

	now := s.clock()
	stats := CollectionStats{TotalCards: len(cards)}
	for _, c := range cards {
		if !c.NextReviewDate.After(now) {
			stats.DueCards++
		}
		stats.TotalExp += c.Exp
	}
	if rs, ok := s.Storage.(*storage.RetryStorage); ok {
		stats.PendingWrites = rs.PendingWrites()
	}
	return cards, stats, nil
}

// ImportDeck bulk-imports cards from an XLSX or CSV deck file.
func (s *ReviewService) ImportDeck(path, sheet string) (*deck.Result, error) {
	importer := deck.NewImporter(s.Storage, sheet, s.Logger)
	result, err := importer.Import(path, s.clock())
	if err != nil {
		s.Logger.Error("deck import failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("error importing deck: %w", err)
	}
	s.Logger.Info("deck imported",
		zap.String("path", path),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *ReviewService) status() SessionStatus {
	due, wrong := s.sess.Remaining()
	return SessionStatus{
		State:          s.sess.State().String(),
		Reason:         string(s.sess.EndReason()),
		Round:          s.sess.Round(),
		Lives:          s.sess.Lives(),
		Frozen:         s.sess.Frozen(),
		DueRemaining:   due,
		WrongRemaining: wrong,
	}
}

func viewOf(act *activity.Activity) *ActivityView {
	if act == nil {
		return nil
	}
	view := &ActivityView{
		Kind:         act.Kind.String(),
		Front:        act.Main.Front,
		Phonetic:     act.Main.Phonetic,
		ImageURL:     act.Main.ImageURL,
		FrontAudio:   act.Main.FrontAudio,
		CorrectIndex: act.CorrectIndex,
		Example:      act.Example,
		CardID:       act.Main.ID,
	}
	for _, opt := range act.Options {
		view.Options = append(view.Options, OptionView{
			ID:       opt.ID,
			Front:    opt.Front,
			Back:     opt.Back,
			Phonetic: opt.Phonetic,
			ImageURL: opt.ImageURL,
		})
	}
	return view
}
