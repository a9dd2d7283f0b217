package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/card"
)

// fileStore is the JSON document written to disk.
type fileStore struct {
	Cards       map[string]card.Card `json:"cards"`
	LastUpdated time.Time            `json:"lastUpdated"`
}

// FileStorage implements Storage using a single JSON file. Every upsert is
// followed by an atomic save (write temp file, rename), so a crash can lose
// at most the in-flight card and never corrupts another card's state.
type FileStorage struct {
	filePath string
	log      *zap.Logger
	mu       sync.RWMutex
	store    fileStore
}

// NewFileStorage creates a file-backed store at filePath.
func NewFileStorage(filePath string, log *zap.Logger) *FileStorage {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStorage{
		filePath: filePath,
		log:      log,
		store:    fileStore{Cards: make(map[string]card.Card)},
	}
}

// Load reads the file into memory, creating an empty store when the file
// does not exist yet. Example data is validated once here: cards with
// malformed examples degrade to the examples that parsed, never failing the
// load.
func (fs *FileStorage) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := os.Stat(fs.filePath); os.IsNotExist(err) {
		fs.store = fileStore{Cards: make(map[string]card.Card)}
		return fs.save()
	}

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(data) == 0 {
		fs.store = fileStore{Cards: make(map[string]card.Card)}
		return nil
	}

	var store fileStore
	if err := json.Unmarshal(data, &store); err != nil {
		return fmt.Errorf("failed to unmarshal storage data: %w", err)
	}
	if store.Cards == nil {
		store.Cards = make(map[string]card.Card)
	}

	for id, c := range store.Cards {
		kept, err := card.ValidateExamples(c.Examples)
		if errors.Is(err, card.ErrMalformedExampleData) {
			fs.log.Warn("dropping malformed example data",
				zap.String("card_id", id),
				zap.Int("kept", len(kept)),
				zap.Int("stored", len(c.Examples)))
			c.Examples = kept
			store.Cards[id] = c
		}
	}

	fs.store = store
	return nil
}

// GetAllCards returns every stored card.
func (fs *FileStorage) GetAllCards() ([]card.Card, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	result := make([]card.Card, 0, len(fs.store.Cards))
	for _, c := range fs.store.Cards {
		result = append(result, c.Clone())
	}
	return result, nil
}

// GetCard retrieves one card by id.
func (fs *FileStorage) GetCard(id string) (card.Card, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	c, exists := fs.store.Cards[id]
	if !exists {
		return card.Card{}, ErrCardNotFound
	}
	return c.Clone(), nil
}

// UpsertCard inserts or replaces a card and saves atomically.
func (fs *FileStorage) UpsertCard(c card.Card) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.store.Cards[c.ID] = c.Clone()
	fs.store.LastUpdated = time.Now()
	if err := fs.save(); err != nil {
		return &WriteError{CardID: c.ID, Err: err}
	}
	return nil
}

// DeleteCard removes a card by id.
func (fs *FileStorage) DeleteCard(id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.store.Cards[id]; !exists {
		return ErrCardNotFound
	}
	delete(fs.store.Cards, id)
	fs.store.LastUpdated = time.Now()
	return fs.save()
}

// Close is a no-op for the file backend.
func (fs *FileStorage) Close() error { return nil }

// save writes the store atomically. The write lock must be held.
func (fs *FileStorage) save() error {
	dataBytes, err := json.MarshalIndent(fs.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage data: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := fs.filePath + ".tmp"
	if err := os.WriteFile(tempFile, dataBytes, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, fs.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
