package main

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/config"
	"github.com/kioku-srs/kioku/internal/storage"
)

func newTestService(t *testing.T) *ReviewService {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "cards.json")
	cfg.LogLevel = "error"

	fs := storage.NewFileStorage(cfg.Storage.Path, zap.NewNop())
	require.NoError(t, fs.Load())

	svc := NewReviewService(fs, cfg)
	t.Cleanup(func() { svc.Storage.Close() })
	return svc
}

func seedCards(t *testing.T, svc *ReviewService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.CreateCard(
			fmt.Sprintf("front-%02d", i),
			fmt.Sprintf("back-%02d", i),
			"", "", "",
		)
		require.NoError(t, err)
	}
}

func TestStartSessionEmptyStoreCompletesImmediately(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.StartSession()
	require.NoError(t, err)

	assert.Nil(t, resp.Activity)
	assert.Equal(t, "complete", resp.Status.State)
}

func TestFullCleanSession(t *testing.T) {
	svc := newTestService(t)
	seedCards(t, svc, 6)

	resp, err := svc.StartSession()
	require.NoError(t, err)
	require.NotNil(t, resp.Activity)
	assert.Equal(t, "round_active", resp.Status.State)
	assert.Len(t, resp.Activity.Options, 4, "main card plus three distractors")

	rounds := 0
	for {
		sub, err := svc.SubmitAnswer(true)
		require.NoError(t, err)
		rounds++

		if sub.Status.State != "round_scored" {
			break
		}
		adv, err := svc.CurrentActivity()
		require.NoError(t, err)
		if adv.Activity == nil {
			assert.Equal(t, "complete", adv.Status.State)
			break
		}
	}

	assert.Equal(t, 6, rounds, "six due cards take six rounds without mistakes")

	status, err := svc.SessionStatus()
	require.NoError(t, err)
	assert.Equal(t, "complete", status.State)
	assert.Equal(t, "finished", status.Reason)

	// All cards scheduled into the future and granted exp.
	cards, stats, err := svc.ListCards()
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalCards)
	assert.Zero(t, stats.DueCards)
	for _, c := range cards {
		assert.Equal(t, 1, c.ConsecutiveCorrect)
		assert.Equal(t, int64(10), c.Exp)
	}
}

func TestWrongAnswerFlowThroughService(t *testing.T) {
	svc := newTestService(t)
	seedCards(t, svc, 6)

	_, err := svc.StartSession()
	require.NoError(t, err)

	sub, err := svc.SubmitAnswer(false)
	require.NoError(t, err)
	assert.True(t, sub.Status.Frozen)
	assert.Equal(t, 2, sub.Status.Lives)
	assert.False(t, sub.Feedback.Correct)
	assert.NotEmpty(t, sub.Feedback.Back, "feedback must carry the answer for the result popup")

	// Advancing while frozen is refused.
	_, err = svc.CurrentActivity()
	assert.Error(t, err)

	_, err = svc.AcknowledgeFeedback()
	require.NoError(t, err)

	adv, err := svc.CurrentActivity()
	require.NoError(t, err)
	assert.NotNil(t, adv.Activity)
	assert.Equal(t, 1, adv.Status.WrongRemaining)
}

func TestAbortSessionAllowsRestart(t *testing.T) {
	svc := newTestService(t)
	seedCards(t, svc, 6)

	_, err := svc.StartSession()
	require.NoError(t, err)

	// A second session may not start while one is running.
	_, err = svc.StartSession()
	assert.Error(t, err)

	status, err := svc.AbortSession()
	require.NoError(t, err)
	assert.Equal(t, "complete", status.State)
	assert.Equal(t, "aborted", status.Reason)

	_, err = svc.StartSession()
	assert.NoError(t, err)
}

func TestSessionRespectsClock(t *testing.T) {
	svc := newTestService(t)
	seedCards(t, svc, 6)

	// Finish one clean round, then move the clock past nothing: the cards
	// were rescheduled into the future, so a new session has nothing due.
	resp, err := svc.StartSession()
	require.NoError(t, err)
	require.NotNil(t, resp.Activity)
	_, err = svc.AbortSession()
	require.NoError(t, err)

	svc.clock = func() time.Time { return time.Now().Add(-time.Hour) }
	resp, err = svc.StartSession()
	require.NoError(t, err)
	assert.Nil(t, resp.Activity, "nothing is due an hour before the cards were created")
	assert.Equal(t, "complete", resp.Status.State)
}

func TestImportDeckThroughService(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.ListCards()
	require.NoError(t, err)

	// Missing file surfaces as a recoverable error, not a panic.
	_, err = svc.ImportDeck(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	assert.Error(t, err)
}
