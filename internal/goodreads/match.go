package goodreads

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

// Candidate is one parsed search result row.
type Candidate struct {
	Title       string
	Author      string
	Rating      string
	RatingCount string
}

// MatchStrategy selects which search result, if any, corresponds to the
// book being scraped. No selection means the rating stays absent.
type MatchStrategy interface {
	Match(title string, candidates []Candidate) *Candidate
}

// NewMatchStrategy maps a config name to a strategy. Unknown names fall
// back to the exact-then-first default.
func NewMatchStrategy(name string, fuzzyThreshold float64) MatchStrategy {
	switch name {
	case "exact":
		return ExactTitleMatch{}
	case "fuzzy":
		return FuzzyTitleMatch{Threshold: fuzzyThreshold}
	case "first":
		return FirstResultMatch{}
	default:
		return ExactThenFirstMatch{}
	}
}

// ExactTitleMatch accepts only a normalized-title equality.
type ExactTitleMatch struct{}

func (ExactTitleMatch) Match(title string, candidates []Candidate) *Candidate {
	want := normalizeTitle(title)
	if want == "" {
		return nil
	}

	for i := range candidates {
		if normalizeTitle(candidates[i].Title) == want {
			return &candidates[i]
		}
	}
	return nil
}

// FuzzyTitleMatch accepts the most similar title at or above the
// Jaro-Winkler threshold.
type FuzzyTitleMatch struct {
	Threshold float64
}

func (f FuzzyTitleMatch) Match(title string, candidates []Candidate) *Candidate {
	want := normalizeTitle(title)
	if want == "" {
		return nil
	}

	var best *Candidate
	bestScore := f.Threshold

	for i := range candidates {
		score := matchr.JaroWinkler(want, normalizeTitle(candidates[i].Title), false)
		if score >= bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best
}

// ExactThenFirstMatch prefers a normalized-title equality and otherwise
// trusts the search engine's top result.
type ExactThenFirstMatch struct{}

func (ExactThenFirstMatch) Match(title string, candidates []Candidate) *Candidate {
	if exact := (ExactTitleMatch{}).Match(title, candidates); exact != nil {
		return exact
	}
	return FirstResultMatch{}.Match(title, candidates)
}

// FirstResultMatch trusts the search engine's own ranking.
type FirstResultMatch struct{}

func (FirstResultMatch) Match(_ string, candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	return &candidates[0]
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
