// Package learning persists post-trade learning reports and generates them
// asynchronously after a position reaches a terminal state.
package learning

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Report summarizes a finished position for later review.
type Report struct {
	PositionID  string    `json:"position_id"`
	UserID      string    `json:"user_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Notional    float64   `json:"notional_usd"`
	Leverage    int       `json:"leverage"`
	Margin      float64   `json:"margin"`
	EntryPrice  float64   `json:"entry_price"`
	Status      string    `json:"status"`
	PnL         float64   `json:"pnl"`
	PnLPct      float64   `json:"pnl_percentage"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
	Insights    []string  `json:"insights"`
	Suggestions []string  `json:"suggestions"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Store appends reports as JSON lines keyed by position id. Appends are
// serialized; reads open their own handle so they never block a writer.
type Store struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// NewStore creates/opens the target file and returns a store.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return &Store{
		path: path,
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Save appends a single report.
func (s *Store) Save(report Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("report store is closed")
	}
	return s.enc.Encode(report)
}

// Load returns the report for a position id, if one was written.
func (s *Store) Load(positionID string) (Report, bool, error) {
	reports, err := s.readAll()
	if err != nil {
		return Report{}, false, err
	}
	for i := len(reports) - 1; i >= 0; i-- {
		if reports[i].PositionID == positionID {
			return reports[i], true, nil
		}
	}
	return Report{}, false, nil
}

// List returns up to limit reports, most recent first.
func (s *Store) List(limit int) ([]Report, error) {
	reports, err := s.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(reports))
	for i := len(reports) - 1; i >= 0; i-- {
		out = append(out, reports[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) readAll() ([]Report, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open report store: %w", err)
	}
	defer file.Close()

	var reports []Report
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var report Report
		if err := json.Unmarshal(line, &report); err != nil {
			// a torn final line from a crash is skipped, not fatal
			continue
		}
		reports = append(reports, report)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan report store: %w", err)
	}
	return reports, nil
}

// Close flushes and closes the append handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
