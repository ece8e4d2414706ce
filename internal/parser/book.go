package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/amazon-book-scraper/internal/models"
	"github.com/maltedev/amazon-book-scraper/internal/scraper"
)

// locator is one strategy for finding a field's value in the document.
// Strategies are tried in order; the first non-empty result wins.
type locator func(doc *goquery.Document) string

// BookParser extracts book metadata from a rendered product page. Every
// field has a fallback chain because the markup varies between layouts;
// a field whose whole chain misses is recorded as absent, not an error.
type BookParser struct {
	title           []locator
	author          []locator
	format          []locator
	summary         []locator
	printLength     []locator
	asin            []locator
	publisher       []locator
	publicationDate []locator
	bestSellersRank []locator
	rating          []locator
	ratingCount     []locator
}

func NewBookParser() *BookParser {
	return &BookParser{
		title: []locator{
			selectorText("#productTitle"),
			selectorText("#ebooksProductTitle"),
		},
		author: []locator{
			selectorText("#bylineInfo .author a"),
			selectorText("#bylineInfo a.contributorNameID"),
			selectorText("#bylineInfo a"),
		},
		format: []locator{
			selectorText("#bylineInfo span.a-color-secondary ~ span"),
			selectorText("#productSubtitle"),
			selectorText("#productBinding"),
		},
		summary: []locator{
			selectorText("#bookDescription_feature_div .a-expander-content"),
			selectorText(".a-expander-content"),
		},
		printLength: []locator{
			selectorText("#rpi-attribute-book_details-ebook_pages .rpi-attribute-value span"),
			selectorText("#rpi-attribute-book_details-fiona_pages .rpi-attribute-value span"),
			detailBullet("Print length"),
			detailTable("Print length"),
		},
		asin: []locator{
			detailBullet("ASIN"),
			detailTable("ASIN"),
		},
		publisher: []locator{
			selectorText("#rpi-attribute-book_details-publisher .rpi-attribute-value span"),
			detailBullet("Publisher"),
			detailTable("Publisher"),
		},
		publicationDate: []locator{
			selectorText("#rpi-attribute-book_details-publication_date .rpi-attribute-value span"),
			detailBullet("Publication date"),
			detailTable("Publication date"),
		},
		bestSellersRank: []locator{
			selectorText(".zg_hrsr .a-list-item"),
			detailBullet("Best Sellers Rank"),
			detailTable("Best Sellers Rank"),
		},
		rating: []locator{
			selectorText("#acrPopover .a-icon-alt"),
			selectorText("span[data-hook='rating-out-of-text']"),
			selectorText(".a-icon-alt"),
		},
		ratingCount: []locator{
			selectorText("#acrCustomerReviewText"),
			selectorText("span[data-hook='total-review-count']"),
		},
	}
}

// Extract builds a complete record from the document. Missing optional
// fields become empty strings; *scraper.ExtractionError is returned when
// the document yields too little content to count as a product page.
func (p *BookParser) Extract(doc *goquery.Document, pageURL string) (*models.BookRecord, error) {
	record := &models.BookRecord{
		URL:             CleanURL(pageURL),
		Title:           first(doc, p.title),
		Author:          first(doc, p.author),
		Format:          first(doc, p.format),
		Summary:         first(doc, p.summary),
		ASIN:            first(doc, p.asin),
		Publisher:       first(doc, p.publisher),
		PublicationDate: first(doc, p.publicationDate),
		BestSellersRank: first(doc, p.bestSellersRank),
	}

	record.PrintLength = NumericToken(first(doc, p.printLength))
	record.AmazonRating = NumericToken(first(doc, p.rating))
	record.AmazonRatingCount = NumericToken(first(doc, p.ratingCount))

	if record.ASIN == "" {
		record.ASIN = asinFromURL(pageURL)
	}

	if !recognizable(record) {
		return nil, &scraper.ExtractionError{URL: pageURL}
	}

	return record, nil
}

// recognizable checks the page produced enough content to count as a
// product page: at least three of the five headline fields. A partially
// rendered page fails here and gets a fresh attempt instead of being
// persisted mostly empty.
func recognizable(record *models.BookRecord) bool {
	found := 0
	for _, field := range []string{
		record.ASIN,
		record.Title,
		record.Author,
		record.Format,
		record.AmazonRating,
	} {
		if field != "" {
			found++
		}
	}
	return found >= 3
}

func first(doc *goquery.Document, chain []locator) string {
	for _, locate := range chain {
		if value := locate(doc); value != "" {
			return value
		}
	}
	return ""
}

func selectorText(selector string) locator {
	return func(doc *goquery.Document) string {
		return cleanText(doc.Find(selector).First().Text())
	}
}

// detailBullet finds a labeled value in the detail-bullets list, e.g.
// <span class="a-text-bold">Publisher :</span><span>Penguin</span>.
func detailBullet(label string) locator {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find("#detailBullets_feature_div span.a-text-bold, #detailBulletsWrapper_feature_div span.a-text-bold").
			EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if !strings.Contains(s.Text(), label) {
					return true
				}
				value = cleanText(s.Next().Text())
				if value == "" {
					// Rank bullets put the value in the parent list item.
					value = cleanText(strings.TrimPrefix(cleanText(s.Parent().Text()), cleanText(s.Text())))
				}
				return false
			})
		return value
	}
}

// detailTable finds a labeled value in the product-details table layout.
func detailTable(label string) locator {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find("#productDetails_detailBullets_sections1 tr, #productDetails_techSpec_section_1 tr").
			EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if !strings.Contains(s.Find("th").Text(), label) {
					return true
				}
				value = cleanText(s.Find("td").Text())
				return false
			})
		return value
	}
}

var numericTokenPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// NumericToken pulls the leading numeric token out of free text, stripping
// thousands separators: "1,246 ratings" -> "1246", "4.5 out of 5 stars" ->
// "4.5". Unparseable text yields the empty string, never an error.
func NumericToken(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	return numericTokenPattern.FindString(s)
}

var asinURLPattern = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)

func asinFromURL(pageURL string) string {
	matches := asinURLPattern.FindStringSubmatch(pageURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// CleanURL normalizes a product URL: drops the /ref tracking suffix and
// query parameters, and keeps a single trailing slash.
func CleanURL(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	path := parsed.Path
	if idx := strings.Index(path, "/ref"); idx >= 0 {
		path = path[:idx]
	}
	path = strings.TrimRight(path, "/")

	return parsed.Scheme + "://" + parsed.Host + path + "/"
}

// cleanText trims and collapses whitespace so multi-line markup text
// becomes a single readable value.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
