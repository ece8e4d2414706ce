package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/amazon-book-scraper/internal/ratelimit"
	"github.com/maltedev/amazon-book-scraper/internal/session"
)

// reviewLandmark is rendered late by the review widget; waiting for it
// gives dynamic content time to load. Its absence alone is not fatal.
const reviewLandmark = "#reviewFeatureGroup"

// landmarkSelectors identify a document as a product page. A load that
// produced none of them is a block or redirect, not a product.
var landmarkSelectors = []string{
	"#dp",
	"#ppd",
	"#centerCol",
	"#productTitle",
	"#ebooksProductTitle",
}

var captchaSelectors = []string{
	"#captchacharacters",
	"form[action*='validateCaptcha']",
	"form[action*='Captcha']",
}

// PageFetcher loads product pages through the shared session, pacing each
// request and classifying block responses as retryable fetch failures.
type PageFetcher struct {
	session *session.Session
	pacing  ratelimit.PacingPolicy
	timeout time.Duration
	logger  *slog.Logger
}

func NewPageFetcher(sess *session.Session, pacing ratelimit.PacingPolicy, timeout time.Duration) *PageFetcher {
	return &PageFetcher{
		session: sess,
		pacing:  pacing,
		timeout: timeout,
		logger:  slog.Default().With("component", "fetcher"),
	}
}

// Fetch navigates to url and returns the rendered document. Timeouts,
// network errors, and captcha interstitials come back as *FetchError.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := f.pacing.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := f.session.Context().NewPage()
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("failed to create page: %w", err)}
	}
	defer page.Close()

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(f.timeout.Milliseconds())),
	}); err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}

	// Scroll like a reader would; several page sections lazy-load.
	if _, err := page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		f.logger.Debug("scroll failed", "url", url, "error", err)
	}

	if _, err := page.WaitForSelector(reviewLandmark, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(f.timeout.Milliseconds())),
	}); err != nil {
		f.logger.Warn("review section did not appear, proceeding with available content", "url", url)
	}

	title, err := page.Title()
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("failed to read title: %w", err)}
	}

	content, err := page.Content()
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("failed to read content: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Errorf("failed to parse document: %w", err)}
	}

	if err := Classify(title, doc); err != nil {
		f.logger.Warn("page rejected", "url", url, "reason", err)
		return nil, &FetchError{URL: url, Cause: err}
	}

	return doc, nil
}

// Classify decides whether a loaded document is usable: ErrBlocked for
// captcha/robot-check interstitials, ErrNoLandmark when no product-page
// structure is present, nil otherwise.
func Classify(title string, doc *goquery.Document) error {
	lowerTitle := strings.ToLower(title)
	if strings.Contains(lowerTitle, "robot check") || strings.Contains(lowerTitle, "captcha") {
		return ErrBlocked
	}

	for _, selector := range captchaSelectors {
		if doc.Find(selector).Length() > 0 {
			return ErrBlocked
		}
	}

	for _, selector := range landmarkSelectors {
		if doc.Find(selector).Length() > 0 {
			return nil
		}
	}

	return ErrNoLandmark
}
