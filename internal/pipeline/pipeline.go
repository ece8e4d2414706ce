package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/maltedev/amazon-book-scraper/internal/goodreads"
	"github.com/maltedev/amazon-book-scraper/internal/models"
	"github.com/maltedev/amazon-book-scraper/internal/queue"
	"github.com/maltedev/amazon-book-scraper/internal/scraper"
	"github.com/maltedev/amazon-book-scraper/internal/sink"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

type Extractor interface {
	Extract(doc *goquery.Document, url string) (*models.BookRecord, error)
}

type RatingLookup interface {
	Lookup(ctx context.Context, title, author string) (*goodreads.Rating, error)
}

type Publisher interface {
	BookScraped(ctx context.Context, record *models.BookRecord) error
	BookFailed(ctx context.Context, url string, attempts int) error
}

// PaceFeedback lets the pacing policy react to outcomes, stretching its
// delays while the site is pushing back.
type PaceFeedback interface {
	RecordSuccess()
	RecordError()
}

type Config struct {
	Fetcher   Fetcher
	Extractor Extractor
	Lookup    RatingLookup
	Sink      sink.Sink
	Publisher Publisher
	Feedback  PaceFeedback

	MaxAttempts int

	// Degraded disables the secondary-source lookup for the whole run.
	// It is decided once at startup, never re-evaluated per URL.
	Degraded bool
}

// Pipeline drives the worklist to exhaustion: every task ends in Success
// or FailedFinal, retryable failures are requeued up to the attempt
// ceiling, and outcomes are appended to the sink as they complete.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	total     int
	succeeded int
	failed    int
	attempts  int
}

func New(cfg Config) *Pipeline {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &Pipeline{
		cfg:    cfg,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// Run processes every URL and returns the run summary. The only errors it
// returns are cancellation and sink write failures; per-URL errors resolve
// into retry transitions instead.
func (p *Pipeline) Run(ctx context.Context, urls []string) (*models.RunSummary, error) {
	start := time.Now()
	runID := uuid.New().String()

	p.mu.Lock()
	p.total = len(urls)
	p.mu.Unlock()

	q := queue.New()
	for _, url := range urls {
		q.Push(models.NewTask(url))
	}

	p.logger.Info("run started", "run_id", runID, "urls", len(urls), "degraded", p.cfg.Degraded)

	for {
		task, ok := q.Pop()
		if !ok {
			break
		}

		select {
		case <-ctx.Done():
			return p.summary(runID, start), ctx.Err()
		default:
		}

		if err := p.process(ctx, q, task); err != nil {
			return p.summary(runID, start), err
		}
	}

	summary := p.summary(runID, start)
	p.logger.Info("run finished",
		"run_id", runID,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", summary.Duration)
	return summary, nil
}

// process runs one attempt for the task and applies the retry transition.
func (p *Pipeline) process(ctx context.Context, q *queue.Queue, task *models.Task) error {
	p.mu.Lock()
	p.attempts++
	p.mu.Unlock()

	record, err := p.attempt(ctx, task.URL)
	if err != nil {
		if ctx.Err() != nil {
			q.Push(task)
			return ctx.Err()
		}
		return p.fail(ctx, q, task, err)
	}

	task.Status = models.StatusSuccess
	if p.cfg.Feedback != nil {
		p.cfg.Feedback.RecordSuccess()
	}

	if err := p.cfg.Sink.AppendRecord(record); err != nil {
		return err
	}

	p.mu.Lock()
	p.succeeded++
	p.mu.Unlock()

	if p.cfg.Publisher != nil {
		if perr := p.cfg.Publisher.BookScraped(ctx, record); perr != nil {
			p.logger.Warn("failed to publish scrape event", "url", task.URL, "error", perr)
		}
	}

	p.logger.Info("scraped", "url", task.URL, "asin", record.ASIN, "attempts", task.Attempts+1)
	return nil
}

// fail counts a failed attempt and either requeues the task or retires it.
func (p *Pipeline) fail(ctx context.Context, q *queue.Queue, task *models.Task, cause error) error {
	task.Attempts++
	if p.cfg.Feedback != nil {
		p.cfg.Feedback.RecordError()
	}

	var fetchErr *scraper.FetchError
	var extractErr *scraper.ExtractionError
	retryable := errors.As(cause, &fetchErr) || errors.As(cause, &extractErr)

	if retryable && task.Attempts < p.cfg.MaxAttempts {
		task.Status = models.StatusPending
		q.Push(task)
		p.logger.Warn("attempt failed, requeued", "url", task.URL, "attempt", task.Attempts, "error", cause)
		return nil
	}

	task.Status = models.StatusFailedFinal
	if err := p.cfg.Sink.AppendFailure(task.URL); err != nil {
		return err
	}

	p.mu.Lock()
	p.failed++
	p.mu.Unlock()

	if p.cfg.Publisher != nil {
		if perr := p.cfg.Publisher.BookFailed(ctx, task.URL, task.Attempts); perr != nil {
			p.logger.Warn("failed to publish failure event", "url", task.URL, "error", perr)
		}
	}

	p.logger.Error("url failed permanently", "url", task.URL, "attempts", task.Attempts, "error", cause)
	return nil
}

// attempt is one fresh fetch-extract-lookup pass; nothing survives from
// previous attempts of the same task.
func (p *Pipeline) attempt(ctx context.Context, url string) (*models.BookRecord, error) {
	doc, err := p.cfg.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	record, err := p.cfg.Extractor.Extract(doc, url)
	if err != nil {
		return nil, err
	}

	if !p.cfg.Degraded && p.cfg.Lookup != nil {
		rating, lerr := p.cfg.Lookup.Lookup(ctx, record.Title, record.Author)
		switch {
		case lerr != nil:
			// A lookup failure degrades this record's secondary fields,
			// never the URL itself.
			p.logger.Warn("secondary lookup failed", "url", url, "error", lerr)
		case rating != nil:
			record.GoodreadsRating = rating.Rating
			record.GoodreadsRatingCount = rating.Count
		}
	}

	return record, nil
}

// Stats returns a live snapshot for the status endpoint.
func (p *Pipeline) Stats() models.RunStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return models.RunStats{
		Total:     p.total,
		Pending:   p.total - p.succeeded - p.failed,
		Succeeded: p.succeeded,
		Failed:    p.failed,
		Attempts:  p.attempts,
		Degraded:  p.cfg.Degraded,
	}
}

func (p *Pipeline) summary(runID string, start time.Time) *models.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	return &models.RunSummary{
		RunID:     runID,
		Total:     p.total,
		Succeeded: p.succeeded,
		Failed:    p.failed,
		Degraded:  p.cfg.Degraded,
		Duration:  time.Since(start),
	}
}
