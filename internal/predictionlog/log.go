// Package predictionlog keeps recent role predictions in a JSON array file
// until a reader drains them.
package predictionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// ErrMissing is returned by Drain when the file has never been written.
var ErrMissing = errors.New("prediction log not found")

// Log is a file-backed list of prediction entries.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New creates a log at path.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Append adds an entry for result and returns it. A corrupt file is replaced.
func (l *Log) Append(result *domain.PredictionResult) (domain.PredictionEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil && !errors.Is(err, ErrMissing) {
		entries = nil
	}

	entry := domain.PredictionEntry{
		ID:            uuid.New().String(),
		Timestamp:     l.now().Format(time.RFC3339),
		NeedStatement: result.NeedStatement,
		Roles:         result.PredictedRoles,
	}
	if len(entry.Roles) == 0 {
		entry.Roles = json.RawMessage("null")
	}
	entries = append(entries, entry)

	if err := l.write(entries); err != nil {
		return domain.PredictionEntry{}, err
	}
	return entry, nil
}

// Drain returns all entries and resets the file to an empty array.
func (l *Log) Drain() ([]domain.PredictionEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		return nil, err
	}
	if err := l.write([]domain.PredictionEntry{}); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.PredictionEntry{}
	}
	return entries, nil
}

func (l *Log) read() ([]domain.PredictionEntry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read prediction log: %w", err)
	}
	var entries []domain.PredictionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode prediction log: %w", err)
	}
	return entries, nil
}

func (l *Log) write(entries []domain.PredictionEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prediction log: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prediction log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("write prediction log: %w", err)
	}
	return nil
}
