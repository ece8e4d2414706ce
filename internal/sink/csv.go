package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/maltedev/amazon-book-scraper/internal/models"
)

// Sink receives terminal outcomes: one record per successfully scraped
// URL, one failure row per URL that exhausted its retries.
type Sink interface {
	AppendRecord(record *models.BookRecord) error
	AppendFailure(url string) error
	Close() error
}

// CSVSink appends to two CSV streams. Every append opens, writes, flushes,
// syncs, and closes the file, so a crash loses at most the in-flight row
// and the files stay readable mid-run.
type CSVSink struct {
	recordsPath  string
	failuresPath string
	mu           sync.Mutex
}

func NewCSVSink(recordsPath, failuresPath string) (*CSVSink, error) {
	if err := ensureHeader(recordsPath, models.RecordHeader()); err != nil {
		return nil, err
	}
	if err := ensureHeader(failuresPath, []string{"failed_url"}); err != nil {
		return nil, err
	}

	return &CSVSink{
		recordsPath:  recordsPath,
		failuresPath: failuresPath,
	}, nil
}

func (s *CSVSink) AppendRecord(record *models.BookRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendRow(s.recordsPath, record.Row())
}

func (s *CSVSink) AppendFailure(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendRow(s.failuresPath, []string{url})
}

// Close is a no-op: no handle outlives an append.
func (s *CSVSink) Close() error {
	return nil
}

func ensureHeader(path string, header []string) error {
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return appendRow(path, header)
}

func appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("failed to write row to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}

	return f.Close()
}

// ReadRecords parses a records CSV written by AppendRecord, skipping the
// header row.
func ReadRecords(path string) ([]*models.BookRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []*models.BookRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if record, ok := models.RecordFromRow(row); ok {
			records = append(records, record)
		}
	}
	return records, nil
}
