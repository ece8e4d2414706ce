package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-book-scraper/internal/models"
)

type EventType string

const (
	EventTypeBookScraped EventType = "BOOK_SCRAPED"
	EventTypeBookFailed  EventType = "BOOK_SCRAPE_FAILED"
)

// StreamClient is the slice of the Redis API the publisher needs; tests
// substitute a recording fake.
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// Publisher emits one event per terminal outcome to a Redis Stream so
// downstream consumers can follow the run live. Publishing is optional
// and never on the critical path of a scrape.
type Publisher struct {
	client StreamClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client StreamClient, stream string) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: slog.Default().With("component", "events"),
	}
}

func (p *Publisher) BookScraped(ctx context.Context, record *models.BookRecord) error {
	return p.publish(ctx, EventTypeBookScraped, map[string]interface{}{
		"url":   record.URL,
		"asin":  record.ASIN,
		"title": record.Title,
	})
}

func (p *Publisher) BookFailed(ctx context.Context, url string, attempts int) error {
	return p.publish(ctx, EventTypeBookFailed, map[string]interface{}{
		"url":      url,
		"attempts": attempts,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType EventType, values map[string]interface{}) error {
	values["event_id"] = uuid.New().String()
	values["event_type"] = string(eventType)
	values["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	if _, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug("event published", "type", eventType, "stream", p.stream)
	return nil
}
