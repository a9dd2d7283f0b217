// Package storage provides the durable card repository behind the review
// engine: a JSON file backend, a SQLite backend, and a retrying wrapper.
package storage

import (
	"errors"

	"github.com/kioku-srs/kioku/internal/card"
)

// ErrCardNotFound is returned when a card id is not present in the store.
var ErrCardNotFound = errors.New("card not found")

// WriteError wraps a persistence failure. Write failures are logged and
// retried opportunistically; they never block session progress.
type WriteError struct {
	CardID string
	Err    error
}

func (e *WriteError) Error() string {
	return "card write failed for " + e.CardID + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }

// Storage is the card repository contract the engine depends on: bulk read
// plus per-card atomic upsert.
type Storage interface {
	GetAllCards() ([]card.Card, error)
	GetCard(id string) (card.Card, error)
	UpsertCard(c card.Card) error
	DeleteCard(id string) error
	Close() error
}
