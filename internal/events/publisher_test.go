package events

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-book-scraper/internal/models"
)

type fakeStreamClient struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStreamClient) XAdd(_ context.Context, args *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, args)
	if f.err != nil {
		cmd := redis.NewStringCmd(context.Background())
		cmd.SetErr(f.err)
		return cmd
	}
	return redis.NewStringResult("1700000000000-0", nil)
}

func TestBookScraped(t *testing.T) {
	client := &fakeStreamClient{}
	p := NewPublisher(client, "stream:book_scrapes")

	record := &models.BookRecord{
		URL:   "https://www.amazon.com/dp/B08FHBV4ZX/",
		ASIN:  "B08FHBV4ZX",
		Title: "Project Hail Mary",
	}
	require.NoError(t, p.BookScraped(context.Background(), record))

	require.Len(t, client.calls, 1)
	args := client.calls[0]
	assert.Equal(t, "stream:book_scrapes", args.Stream)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, string(EventTypeBookScraped), values["event_type"])
	assert.Equal(t, record.URL, values["url"])
	assert.Equal(t, record.ASIN, values["asin"])
	assert.Equal(t, record.Title, values["title"])
	assert.NotEmpty(t, values["event_id"])
	assert.NotEmpty(t, values["timestamp"])
}

func TestBookFailed(t *testing.T) {
	client := &fakeStreamClient{}
	p := NewPublisher(client, "stream:book_scrapes")

	require.NoError(t, p.BookFailed(context.Background(), "https://www.amazon.com/dp/B000000000/", 3))

	require.Len(t, client.calls, 1)
	values := client.calls[0].Values.(map[string]interface{})
	assert.Equal(t, string(EventTypeBookFailed), values["event_type"])
	assert.Equal(t, 3, values["attempts"])
}

func TestPublishError(t *testing.T) {
	client := &fakeStreamClient{err: errors.New("connection refused")}
	p := NewPublisher(client, "stream:book_scrapes")

	err := p.BookFailed(context.Background(), "https://a/", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOK_SCRAPE_FAILED")
}

func TestEventIDsAreUnique(t *testing.T) {
	client := &fakeStreamClient{}
	p := NewPublisher(client, "stream:book_scrapes")

	require.NoError(t, p.BookFailed(context.Background(), "https://a/", 3))
	require.NoError(t, p.BookFailed(context.Background(), "https://b/", 3))

	first := client.calls[0].Values.(map[string]interface{})["event_id"]
	second := client.calls[1].Values.(map[string]interface{})["event_id"]
	assert.NotEqual(t, first, second)
}
