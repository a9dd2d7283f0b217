package storage

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/card"
)

// RetryStorage wraps a Storage and absorbs write failures: a failed upsert
// is buffered and retried by a background job and again on the next
// successful write. A session therefore never blocks on persistence; at
// worst the buffered cards are lost on a hard crash.
type RetryStorage struct {
	inner     Storage
	log       *zap.Logger
	scheduler *gocron.Scheduler

	mu      sync.Mutex
	pending map[string]card.Card
}

// NewRetryStorage wraps inner and starts a background flush job with the
// given interval.
func NewRetryStorage(inner Storage, flushInterval time.Duration, log *zap.Logger) *RetryStorage {
	if log == nil {
		log = zap.NewNop()
	}
	rs := &RetryStorage{
		inner:     inner,
		log:       log,
		scheduler: gocron.NewScheduler(time.UTC),
		pending:   make(map[string]card.Card),
	}
	rs.scheduler.Every(flushInterval).Do(rs.Flush)
	rs.scheduler.StartAsync()
	return rs
}

// GetAllCards delegates to the wrapped store, overlaying any buffered
// updates so readers see the session's view of unflushed cards.
func (rs *RetryStorage) GetAllCards() ([]card.Card, error) {
	cards, err := rs.inner.GetAllCards()
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.pending) == 0 {
		return cards, nil
	}
	for i := range cards {
		if p, ok := rs.pending[cards[i].ID]; ok {
			cards[i] = p.Clone()
		}
	}
	return cards, nil
}

// GetCard delegates to the wrapped store, preferring a buffered update.
func (rs *RetryStorage) GetCard(id string) (card.Card, error) {
	rs.mu.Lock()
	if p, ok := rs.pending[id]; ok {
		rs.mu.Unlock()
		return p.Clone(), nil
	}
	rs.mu.Unlock()
	return rs.inner.GetCard(id)
}

// UpsertCard writes through to the wrapped store. On failure the card is
// buffered and nil is returned; on success any buffered backlog is flushed.
func (rs *RetryStorage) UpsertCard(c card.Card) error {
	if err := rs.inner.UpsertCard(c); err != nil {
		rs.log.Warn("buffering failed card write for retry",
			zap.String("card_id", c.ID),
			zap.Error(err))
		rs.mu.Lock()
		rs.pending[c.ID] = c.Clone()
		rs.mu.Unlock()
		return nil
	}

	rs.mu.Lock()
	delete(rs.pending, c.ID)
	rs.mu.Unlock()
	rs.Flush()
	return nil
}

// DeleteCard delegates to the wrapped store and drops any buffered update
// for the same card.
func (rs *RetryStorage) DeleteCard(id string) error {
	rs.mu.Lock()
	delete(rs.pending, id)
	rs.mu.Unlock()
	return rs.inner.DeleteCard(id)
}

// Flush retries every buffered write once.
func (rs *RetryStorage) Flush() {
	rs.mu.Lock()
	if len(rs.pending) == 0 {
		rs.mu.Unlock()
		return
	}
	backlog := make([]card.Card, 0, len(rs.pending))
	for _, c := range rs.pending {
		backlog = append(backlog, c)
	}
	rs.mu.Unlock()

	for _, c := range backlog {
		if err := rs.inner.UpsertCard(c); err != nil {
			rs.log.Debug("retry of buffered card write failed",
				zap.String("card_id", c.ID),
				zap.Error(err))
			continue
		}
		rs.mu.Lock()
		delete(rs.pending, c.ID)
		rs.mu.Unlock()
		rs.log.Info("buffered card write flushed", zap.String("card_id", c.ID))
	}
}

// PendingWrites reports how many card updates are waiting to be flushed.
func (rs *RetryStorage) PendingWrites() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.pending)
}

// Close flushes the backlog, stops the background job and closes the
// wrapped store.
func (rs *RetryStorage) Close() error {
	rs.Flush()
	rs.scheduler.Stop()
	return rs.inner.Close()
}
