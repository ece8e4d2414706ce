package goodreads

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/amazon-book-scraper/internal/ratelimit"
	"github.com/maltedev/amazon-book-scraper/internal/session"
)

const searchBaseURL = "https://www.goodreads.com/search"

// Rating is the supplementary rating data for one book.
type Rating struct {
	Rating string
	Count  string
}

// Searcher looks up rating data on Goodreads by title and author. It
// shares the run's browsing session and no-ops without authentication;
// that is the designed degraded mode, not a failure.
type Searcher struct {
	session *session.Session
	pacing  ratelimit.PacingPolicy
	matcher MatchStrategy
	timeout time.Duration
	logger  *slog.Logger
}

func NewSearcher(sess *session.Session, pacing ratelimit.PacingPolicy, matcher MatchStrategy, timeout time.Duration) *Searcher {
	if matcher == nil {
		matcher = ExactTitleMatch{}
	}
	return &Searcher{
		session: sess,
		pacing:  pacing,
		matcher: matcher,
		timeout: timeout,
		logger:  slog.Default().With("component", "goodreads"),
	}
}

// Lookup searches for the book and returns its rating data, or nil when
// the session is unauthenticated, the title is empty, or no search result
// matches. Errors are transport-level only; the caller treats them as
// "fields absent for this record", never as a failed URL.
func (s *Searcher) Lookup(ctx context.Context, title, author string) (*Rating, error) {
	if !s.session.Authenticated() {
		return nil, nil
	}
	if title == "" {
		return nil, nil
	}

	if err := s.pacing.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := s.session.Context().NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create search page: %w", err)
	}
	defer page.Close()

	searchURL := searchBaseURL + "?q=" + url.QueryEscape(strings.TrimSpace(title+" "+author))
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("failed to load search results: %w", err)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	candidates := ParseSearchResults(doc)
	pick := s.matcher.Match(title, candidates)
	if pick == nil {
		s.logger.Debug("no matching search result", "title", title, "candidates", len(candidates))
		return nil, nil
	}
	if pick.Rating == "" {
		return nil, nil
	}

	return &Rating{Rating: pick.Rating, Count: pick.RatingCount}, nil
}

var miniratingPattern = regexp.MustCompile(`(\d+\.?\d*)\s+avg rating\s*[—–-]\s*([\d,]+)\s+ratings`)

// ParseSearchResults extracts candidate books from a search results page.
func ParseSearchResults(doc *goquery.Document) []Candidate {
	var candidates []Candidate

	doc.Find("tr[itemtype='http://schema.org/Book']").Each(func(_ int, row *goquery.Selection) {
		candidate := Candidate{
			Title:  cleanText(row.Find("a.bookTitle span").First().Text()),
			Author: cleanText(row.Find("a.authorName span").First().Text()),
		}

		minirating := cleanText(row.Find("span.minirating").First().Text())
		if matches := miniratingPattern.FindStringSubmatch(minirating); len(matches) == 3 {
			candidate.Rating = matches[1]
			candidate.RatingCount = strings.ReplaceAll(matches[2], ",", "")
		}

		if candidate.Title != "" {
			candidates = append(candidates, candidate)
		}
	})

	return candidates
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
