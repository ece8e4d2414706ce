package sink

import (
	"log/slog"

	"github.com/maltedev/amazon-book-scraper/internal/models"
)

// MultiSink writes to a primary sink and mirrors. Primary errors propagate;
// mirror errors are logged and swallowed so a mirror outage cannot fail a
// scrape that the durable stream already accepted.
type MultiSink struct {
	primary Sink
	mirrors []Sink
	logger  *slog.Logger
}

func NewMultiSink(primary Sink, mirrors ...Sink) *MultiSink {
	return &MultiSink{
		primary: primary,
		mirrors: mirrors,
		logger:  slog.Default().With("component", "sink"),
	}
}

func (m *MultiSink) AppendRecord(record *models.BookRecord) error {
	if err := m.primary.AppendRecord(record); err != nil {
		return err
	}

	for _, mirror := range m.mirrors {
		if err := mirror.AppendRecord(record); err != nil {
			m.logger.Warn("mirror sink failed to store record", "url", record.URL, "error", err)
		}
	}
	return nil
}

func (m *MultiSink) AppendFailure(url string) error {
	if err := m.primary.AppendFailure(url); err != nil {
		return err
	}

	for _, mirror := range m.mirrors {
		if err := mirror.AppendFailure(url); err != nil {
			m.logger.Warn("mirror sink failed to store failure", "url", url, "error", err)
		}
	}
	return nil
}

func (m *MultiSink) Close() error {
	err := m.primary.Close()
	for _, mirror := range m.mirrors {
		if cerr := mirror.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
