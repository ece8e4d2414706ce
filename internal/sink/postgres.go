package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maltedev/amazon-book-scraper/internal/models"
)

const booksSchema = `
CREATE TABLE IF NOT EXISTS books (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	print_length TEXT NOT NULL DEFAULT '',
	asin TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	publication_date TEXT NOT NULL DEFAULT '',
	best_sellers_rank TEXT NOT NULL DEFAULT '',
	amazon_rating TEXT NOT NULL DEFAULT '',
	amazon_rating_count TEXT NOT NULL DEFAULT '',
	goodreads_rating TEXT NOT NULL DEFAULT '',
	goodreads_rating_count TEXT NOT NULL DEFAULT '',
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS failed_urls (
	url TEXT PRIMARY KEY,
	failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresSink mirrors outcomes into Postgres for querying. The CSV
// streams remain the durability contract; this sink is best-effort and
// wired in only when a database URL is configured.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, booksSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &PostgresSink{
		pool:   pool,
		logger: slog.Default().With("component", "postgres_sink"),
	}, nil
}

func (s *PostgresSink) AppendRecord(record *models.BookRecord) error {
	query := `
		INSERT INTO books (
			url, title, author, format, summary, print_length, asin,
			publisher, publication_date, best_sellers_rank,
			amazon_rating, amazon_rating_count,
			goodreads_rating, goodreads_rating_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			format = EXCLUDED.format,
			summary = EXCLUDED.summary,
			print_length = EXCLUDED.print_length,
			asin = EXCLUDED.asin,
			publisher = EXCLUDED.publisher,
			publication_date = EXCLUDED.publication_date,
			best_sellers_rank = EXCLUDED.best_sellers_rank,
			amazon_rating = EXCLUDED.amazon_rating,
			amazon_rating_count = EXCLUDED.amazon_rating_count,
			goodreads_rating = EXCLUDED.goodreads_rating,
			goodreads_rating_count = EXCLUDED.goodreads_rating_count,
			scraped_at = now()`

	row := record.Row()
	args := make([]interface{}, len(row))
	for i, v := range row {
		args[i] = v
	}

	if _, err := s.pool.Exec(context.Background(), query, args...); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *PostgresSink) AppendFailure(url string) error {
	query := `
		INSERT INTO failed_urls (url) VALUES ($1)
		ON CONFLICT (url) DO UPDATE SET failed_at = now()`

	if _, err := s.pool.Exec(context.Background(), query, url); err != nil {
		return fmt.Errorf("failed to insert failure: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
