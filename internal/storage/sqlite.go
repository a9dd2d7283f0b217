package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/kioku-srs/kioku/internal/card"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cards (
	id                    TEXT PRIMARY KEY,
	front                 TEXT NOT NULL,
	back                  TEXT NOT NULL,
	phonetic              TEXT NOT NULL DEFAULT '',
	image_url             TEXT NOT NULL DEFAULT '',
	front_audio           TEXT NOT NULL DEFAULT '',
	examples              TEXT NOT NULL DEFAULT '[]',
	created_at            TIMESTAMP NOT NULL,
	last_review_date      TIMESTAMP NOT NULL,
	next_review_date      TIMESTAMP NOT NULL,
	consecutive_correct   INTEGER NOT NULL DEFAULT 0,
	ease_factor           REAL NOT NULL,
	wrong_queued          INTEGER NOT NULL DEFAULT 0,
	wrong_rounds_remaining INTEGER NOT NULL DEFAULT 0,
	exp                   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_cards_next_review ON cards (next_review_date);
`

// cardRow maps a cards table row; examples travel as a JSON column.
type cardRow struct {
	ID                   string    `db:"id"`
	Front                string    `db:"front"`
	Back                 string    `db:"back"`
	Phonetic             string    `db:"phonetic"`
	ImageURL             string    `db:"image_url"`
	FrontAudio           string    `db:"front_audio"`
	Examples             string    `db:"examples"`
	CreatedAt            time.Time `db:"created_at"`
	LastReviewDate       time.Time `db:"last_review_date"`
	NextReviewDate       time.Time `db:"next_review_date"`
	ConsecutiveCorrect   int       `db:"consecutive_correct"`
	EaseFactor           float64   `db:"ease_factor"`
	WrongQueued          bool      `db:"wrong_queued"`
	WrongRoundsRemaining uint      `db:"wrong_rounds_remaining"`
	Exp                  int64     `db:"exp"`
}

// SQLiteStorage implements Storage over a SQLite database.
type SQLiteStorage struct {
	db  *sqlx.DB
	log *zap.Logger
}

// OpenSQLite opens (and if needed creates) the database at dsn and ensures
// the schema is applied.
func OpenSQLite(dsn string, log *zap.Logger) (*SQLiteStorage, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStorage{db: db, log: log}, nil
}

// GetAllCards returns every stored card. Malformed example columns degrade
// to zero examples instead of failing the read.
func (s *SQLiteStorage) GetAllCards() ([]card.Card, error) {
	var rows []cardRow
	if err := s.db.Select(&rows, `SELECT * FROM cards ORDER BY next_review_date`); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	cards := make([]card.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, s.fromRow(row))
	}
	return cards, nil
}

// GetCard retrieves one card by id.
func (s *SQLiteStorage) GetCard(id string) (card.Card, error) {
	var row cardRow
	err := s.db.Get(&row, `SELECT * FROM cards WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return card.Card{}, ErrCardNotFound
	}
	if err != nil {
		return card.Card{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return s.fromRow(row), nil
}

// UpsertCard inserts or replaces a card in a single statement; the per-card
// write is atomic at the database level.
func (s *SQLiteStorage) UpsertCard(c card.Card) error {
	examples, err := json.Marshal(c.Examples)
	if err != nil {
		return &WriteError{CardID: c.ID, Err: err}
	}
	_, err = s.db.Exec(`
		INSERT INTO cards (
			id, front, back, phonetic, image_url, front_audio, examples,
			created_at, last_review_date, next_review_date,
			consecutive_correct, ease_factor, wrong_queued,
			wrong_rounds_remaining, exp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			front = excluded.front,
			back = excluded.back,
			phonetic = excluded.phonetic,
			image_url = excluded.image_url,
			front_audio = excluded.front_audio,
			examples = excluded.examples,
			last_review_date = excluded.last_review_date,
			next_review_date = excluded.next_review_date,
			consecutive_correct = excluded.consecutive_correct,
			ease_factor = excluded.ease_factor,
			wrong_queued = excluded.wrong_queued,
			wrong_rounds_remaining = excluded.wrong_rounds_remaining,
			exp = excluded.exp
	`,
		c.ID, c.Front, c.Back, c.Phonetic, c.ImageURL, c.FrontAudio, string(examples),
		c.CreatedAt, c.LastReviewDate, c.NextReviewDate,
		c.ConsecutiveCorrect, c.EaseFactor, c.WrongQueue.Queued,
		c.WrongQueue.RoundsRemaining, c.Exp,
	)
	if err != nil {
		return &WriteError{CardID: c.ID, Err: err}
	}
	return nil
}

// DeleteCard removes a card by id.
func (s *SQLiteStorage) DeleteCard(id string) error {
	res, err := s.db.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrCardNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) fromRow(row cardRow) card.Card {
	c := card.Card{
		ID:                 row.ID,
		Front:              row.Front,
		Back:               row.Back,
		Phonetic:           row.Phonetic,
		ImageURL:           row.ImageURL,
		FrontAudio:         row.FrontAudio,
		CreatedAt:          row.CreatedAt,
		LastReviewDate:     row.LastReviewDate,
		NextReviewDate:     row.NextReviewDate,
		ConsecutiveCorrect: row.ConsecutiveCorrect,
		EaseFactor:         row.EaseFactor,
		WrongQueue: card.WrongQueueState{
			Queued:          row.WrongQueued,
			RoundsRemaining: row.WrongRoundsRemaining,
		},
		Exp: row.Exp,
	}

	var examples []card.Example
	if err := json.Unmarshal([]byte(row.Examples), &examples); err != nil {
		s.log.Warn("dropping malformed example data",
			zap.String("card_id", row.ID),
			zap.Error(err))
		return c
	}
	kept, err := card.ValidateExamples(examples)
	if errors.Is(err, card.ErrMalformedExampleData) {
		s.log.Warn("dropping malformed example data",
			zap.String("card_id", row.ID),
			zap.Int("kept", len(kept)),
			zap.Int("stored", len(examples)))
	}
	c.Examples = kept
	return c
}
