package scraper

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		html     string
		expected error
	}{
		{
			name:     "Product page by dp container",
			title:    "Project Hail Mary - Kindle edition",
			html:     `<div id="dp"><span id="productTitle">Project Hail Mary</span></div>`,
			expected: nil,
		},
		{
			name:     "Product page by title element only",
			title:    "Project Hail Mary",
			html:     `<span id="ebooksProductTitle">Project Hail Mary</span>`,
			expected: nil,
		},
		{
			name:     "Robot check title",
			title:    "Robot Check",
			html:     `<div id="dp"></div>`,
			expected: ErrBlocked,
		},
		{
			name:     "Captcha input field",
			title:    "Amazon.com",
			html:     `<form action="/errors/validateCaptcha"><input id="captchacharacters"/></form>`,
			expected: ErrBlocked,
		},
		{
			name:     "Captcha form action without input",
			title:    "Amazon.com",
			html:     `<form action="/errors/validateCaptcha"></form>`,
			expected: ErrBlocked,
		},
		{
			name:     "No landmark at all",
			title:    "Page Not Found",
			html:     `<div class="error">Sorry, something went wrong.</div>`,
			expected: ErrNoLandmark,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.title, parseHTML(t, tt.html))
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	err := &FetchError{URL: "https://www.amazon.com/dp/B000000000/", Cause: ErrBlocked}

	assert.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, err.Error(), "https://www.amazon.com/dp/B000000000/")

	var fetchErr *FetchError
	assert.True(t, errors.As(error(err), &fetchErr))
}

func TestExtractionErrorMessage(t *testing.T) {
	err := &ExtractionError{URL: "https://www.amazon.com/dp/B000000000/"}
	assert.Contains(t, err.Error(), "https://www.amazon.com/dp/B000000000/")
}
