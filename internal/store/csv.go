package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/perceptio/backend/internal/domain/survey"
)

// CSVRecordStore keeps session records in a CSV file with a header row.
type CSVRecordStore struct {
	path string
	mu   sync.RWMutex
}

var _ RecordStore = (*CSVRecordStore)(nil)

// NewCSVRecordStore opens path, creating it with a header row when missing.
func NewCSVRecordStore(path string) (*CSVRecordStore, error) {
	s := &CSVRecordStore{path: path}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *CSVRecordStore) Path() string {
	return s.path
}

func (s *CSVRecordStore) init() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *CSVRecordStore) AppendRecord(ctx context.Context, rec survey.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordFields(rec)); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return f.Sync()
}

// ListRecords reads the whole file. Columns are looked up by header name, so
// files written with fewer columns still load.
func (s *CSVRecordStore) ListRecords(ctx context.Context) ([]survey.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	return ReadCSVRecords(f)
}

// ReadCSVRecords decodes a records CSV stream. Blank lines are skipped.
func ReadCSVRecords(r io.Reader) ([]survey.SessionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []survey.SessionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	recs := []survey.SessionRecord{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		recs = append(recs, recordFrom(func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}))
	}
	return recs, nil
}
