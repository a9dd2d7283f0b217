// Package deck imports bulk card decks from XLSX or CSV files into the
// card repository.
package deck

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/card"
	"github.com/kioku-srs/kioku/internal/review"
	"github.com/kioku-srs/kioku/internal/storage"
)

// Columns: front, back, phonetic, image URL, front audio, examples.
// The examples cell holds entries "question|answer|translation" separated
// by ';'. Malformed cells degrade to zero examples.
const (
	colFront = iota
	colBack
	colPhonetic
	colImageURL
	colFrontAudio
	colExamples
)

// Result summarizes one import run.
type Result struct {
	TotalProcessed int      `json:"total_processed"`
	Imported       int      `json:"imported"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors,omitempty"`
}

// Importer reads deck files into a card repository. Imported cards start
// due immediately with the initial ease factor.
type Importer struct {
	repo  storage.Storage
	log   *zap.Logger
	sheet string
}

// NewImporter creates an importer writing into repo. Sheet names the XLSX
// sheet to read; CSV files ignore it.
func NewImporter(repo storage.Storage, sheet string, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &Importer{repo: repo, log: log, sheet: sheet}
}

// Import reads the deck at path, dispatching on the file extension.
func (im *Importer) Import(path string, now time.Time) (*Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return im.importCSV(path, now)
	}
	return im.importXLSX(path, now)
}

func (im *Importer) importXLSX(path string, now time.Time) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open deck file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(im.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", im.sheet, err)
	}

	result := &Result{}
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		im.importRow(row, i+1, now, result)
	}
	return result, nil
}

func (im *Importer) importCSV(path string, now time.Time) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open deck file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	result := &Result{}
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if line == 1 {
			continue // header row
		}
		im.importRow(row, line, now, result)
	}
	return result, nil
}

func (im *Importer) importRow(row []string, line int, now time.Time, result *Result) {
	result.TotalProcessed++

	front := cell(row, colFront)
	back := cell(row, colBack)
	if front == "" || back == "" {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: missing front or back", line))
		return
	}

	c := card.Card{
		ID:             uuid.New().String(),
		Front:          front,
		Back:           back,
		Phonetic:       cell(row, colPhonetic),
		ImageURL:       cell(row, colImageURL),
		FrontAudio:     cell(row, colFrontAudio),
		CreatedAt:      now,
		LastReviewDate: now,
		NextReviewDate: now, // due immediately
		EaseFactor:     review.InitialEase,
	}
	c.Examples = im.parseExamples(cell(row, colExamples), line)

	if err := im.repo.UpsertCard(c); err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
		return
	}
	result.Imported++
}

// parseExamples splits an examples cell into typed examples, dropping
// malformed entries.
func (im *Importer) parseExamples(raw string, line int) []card.Example {
	if raw == "" {
		return nil
	}
	var examples []card.Example
	for _, entry := range strings.Split(raw, ";") {
		parts := strings.Split(entry, "|")
		if len(parts) != 3 {
			im.log.Warn("dropping malformed example cell entry",
				zap.Int("row", line),
				zap.String("entry", entry))
			continue
		}
		ex := card.Example{
			Question:    strings.TrimSpace(parts[0]),
			Answer:      strings.TrimSpace(parts[1]),
			Translation: strings.TrimSpace(parts[2]),
		}
		if err := ex.Validate(); err != nil {
			im.log.Warn("dropping malformed example cell entry",
				zap.Int("row", line),
				zap.String("entry", entry),
				zap.Error(err))
			continue
		}
		examples = append(examples, ex)
	}
	return examples
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
