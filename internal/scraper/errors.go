package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrBlocked marks a captcha or robot-check interstitial. The product
	// page may well exist; the response is transient and worth retrying.
	ErrBlocked = errors.New("blocked by anti-bot interstitial")

	// ErrNoLandmark marks a loaded document with none of the structural
	// landmarks a product page carries, usually a redirect or error page.
	ErrNoLandmark = errors.New("expected page landmark missing")
)

// FetchError is a transient page-load failure: timeout, network error, or
// a block/redirect page instead of the product.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ExtractionError means the document loaded but is not recognizable as a
// product page at all. Missing individual fields never produce it.
type ExtractionError struct {
	URL string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: document not recognizable as a product page", e.URL)
}
