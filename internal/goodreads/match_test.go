package goodreads

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates() []Candidate {
	return []Candidate{
		{Title: "The Martian Chronicles", Author: "Ray Bradbury", Rating: "4.01", RatingCount: "450123"},
		{Title: "The Martian", Author: "Andy Weir", Rating: "4.41", RatingCount: "1204345"},
		{Title: "Artemis", Author: "Andy Weir", Rating: "3.66", RatingCount: "300211"},
	}
}

func TestExactTitleMatch(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string // matched candidate title, "" for no match
	}{
		{name: "Exact hit", title: "The Martian", expected: "The Martian"},
		{name: "Case and punctuation ignored", title: "the martian!", expected: "The Martian"},
		{name: "Partial title is not exact", title: "Martian", expected: ""},
		{name: "Empty title", title: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExactTitleMatch{}.Match(tt.title, candidates())
			if tt.expected == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Title)
		})
	}
}

func TestFuzzyTitleMatchPicksBestAboveThreshold(t *testing.T) {
	m := FuzzyTitleMatch{Threshold: 0.93}

	got := m.Match("The Martain", candidates())
	require.NotNil(t, got)
	assert.Equal(t, "The Martian", got.Title)
}

func TestFuzzyTitleMatchRejectsBelowThreshold(t *testing.T) {
	m := FuzzyTitleMatch{Threshold: 0.93}
	assert.Nil(t, m.Match("Project Hail Mary", candidates()))
}

func TestFirstResultMatch(t *testing.T) {
	got := FirstResultMatch{}.Match("anything", candidates())
	require.NotNil(t, got)
	assert.Equal(t, "The Martian Chronicles", got.Title)

	assert.Nil(t, FirstResultMatch{}.Match("anything", nil))
}

func TestExactThenFirstMatch(t *testing.T) {
	m := ExactThenFirstMatch{}

	// Exact hit outranks the top result.
	got := m.Match("The Martian", candidates())
	require.NotNil(t, got)
	assert.Equal(t, "The Martian", got.Title)

	// No exact hit falls through to the first result.
	got = m.Match("Project Hail Mary", candidates())
	require.NotNil(t, got)
	assert.Equal(t, "The Martian Chronicles", got.Title)

	assert.Nil(t, m.Match("Project Hail Mary", nil))
}

func TestNewMatchStrategy(t *testing.T) {
	assert.IsType(t, ExactThenFirstMatch{}, NewMatchStrategy("exact-first", 0.9))
	assert.IsType(t, ExactTitleMatch{}, NewMatchStrategy("exact", 0.9))
	assert.IsType(t, FuzzyTitleMatch{}, NewMatchStrategy("fuzzy", 0.9))
	assert.IsType(t, FirstResultMatch{}, NewMatchStrategy("first", 0.9))
	assert.IsType(t, ExactThenFirstMatch{}, NewMatchStrategy("bogus", 0.9))
}

func TestParseSearchResults(t *testing.T) {
	html := `
		<table class="tableList">
			<tr itemtype="http://schema.org/Book">
				<td>
					<a class="bookTitle" href="#"><span>The Martian</span></a>
					<a class="authorName" href="#"><span>Andy Weir</span></a>
					<span class="minirating">4.41 avg rating — 1,204,345 ratings</span>
				</td>
			</tr>
			<tr itemtype="http://schema.org/Book">
				<td>
					<a class="bookTitle" href="#"><span>Artemis</span></a>
					<a class="authorName" href="#"><span>Andy Weir</span></a>
					<span class="minirating">not yet rated</span>
				</td>
			</tr>
			<tr><td>not a book row</td></tr>
		</table>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	got := ParseSearchResults(doc)
	require.Len(t, got, 2)

	assert.Equal(t, "The Martian", got[0].Title)
	assert.Equal(t, "Andy Weir", got[0].Author)
	assert.Equal(t, "4.41", got[0].Rating)
	assert.Equal(t, "1204345", got[0].RatingCount)

	assert.Equal(t, "Artemis", got[1].Title)
	assert.Empty(t, got[1].Rating)
	assert.Empty(t, got[1].RatingCount)
}

func TestParseSearchResultsEmptyPage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>No results.</body></html>"))
	require.NoError(t, err)
	assert.Empty(t, ParseSearchResults(doc))
}
