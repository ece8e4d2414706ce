package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-book-scraper/internal/scraper"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractFullPage(t *testing.T) {
	html := `
		<div id="dp">
			<span id="productTitle"> Project Hail Mary </span>
			<div id="bylineInfo">
				<span class="author"><a href="#">Andy Weir</a></span>
			</div>
			<span id="productSubtitle">Kindle Edition</span>
			<div id="bookDescription_feature_div">
				<div class="a-expander-content">A lone astronaut must save the earth.</div>
			</div>
			<div id="rpi-attribute-book_details-ebook_pages">
				<div class="rpi-attribute-value"><span>496 pages</span></div>
			</div>
			<div id="rpi-attribute-book_details-publisher">
				<div class="rpi-attribute-value"><span>Ballantine Books</span></div>
			</div>
			<div id="rpi-attribute-book_details-publication_date">
				<div class="rpi-attribute-value"><span>May 4, 2021</span></div>
			</div>
			<div id="detailBullets_feature_div">
				<li><span class="a-list-item">
					<span class="a-text-bold">ASIN : </span><span>B08FHBV4ZX</span>
				</span></li>
				<li><span class="a-list-item">
					<span class="a-text-bold">Best Sellers Rank: </span> #1,402 in Kindle Store
				</span></li>
			</div>
			<span id="acrPopover"><span class="a-icon-alt">4.7 out of 5 stars</span></span>
			<span id="acrCustomerReviewText">248,220 ratings</span>
		</div>`

	parser := NewBookParser()
	record, err := parser.Extract(docFromHTML(t, html), "https://www.amazon.com/dp/B08FHBV4ZX/ref=sr_1_1?keywords=hail+mary")
	require.NoError(t, err)

	assert.Equal(t, "https://www.amazon.com/dp/B08FHBV4ZX/", record.URL)
	assert.Equal(t, "Project Hail Mary", record.Title)
	assert.Equal(t, "Andy Weir", record.Author)
	assert.Equal(t, "Kindle Edition", record.Format)
	assert.Equal(t, "A lone astronaut must save the earth.", record.Summary)
	assert.Equal(t, "496", record.PrintLength)
	assert.Equal(t, "B08FHBV4ZX", record.ASIN)
	assert.Equal(t, "Ballantine Books", record.Publisher)
	assert.Equal(t, "May 4, 2021", record.PublicationDate)
	assert.Contains(t, record.BestSellersRank, "#1,402 in Kindle Store")
	assert.Equal(t, "4.7", record.AmazonRating)
	assert.Equal(t, "248220", record.AmazonRatingCount)
}

func TestExtractFallbackLocators(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		check func(t *testing.T, title, author, publisher string)
	}{
		{
			name: "Ebook title and contributor byline",
			html: `
				<span id="ebooksProductTitle">The Martian</span>
				<div id="bylineInfo"><a class="contributorNameID" href="#">Andy Weir</a></div>`,
			check: func(t *testing.T, title, author, _ string) {
				assert.Equal(t, "The Martian", title)
				assert.Equal(t, "Andy Weir", author)
			},
		},
		{
			name: "Publisher from detail bullets",
			html: `
				<span id="productTitle">The Martian</span>
				<div id="bylineInfo"><a href="#">Andy Weir</a></div>
				<div id="detailBullets_feature_div">
					<li><span class="a-list-item">
						<span class="a-text-bold">Publisher : </span><span>Crown</span>
					</span></li>
				</div>`,
			check: func(t *testing.T, _, _, publisher string) {
				assert.Equal(t, "Crown", publisher)
			},
		},
		{
			name: "Publisher from details table",
			html: `
				<span id="productTitle">The Martian</span>
				<div id="bylineInfo"><a href="#">Andy Weir</a></div>
				<table id="productDetails_detailBullets_sections1">
					<tr><th>Publisher</th><td>Crown</td></tr>
				</table>`,
			check: func(t *testing.T, _, _, publisher string) {
				assert.Equal(t, "Crown", publisher)
			},
		},
	}

	parser := NewBookParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := parser.Extract(docFromHTML(t, tt.html), "https://www.amazon.com/dp/B00EMXBDMA")
			require.NoError(t, err)
			tt.check(t, record.Title, record.Author, record.Publisher)
		})
	}
}

func TestExtractMissingFieldsAreAbsent(t *testing.T) {
	html := `
		<span id="productTitle">Untracked Book</span>
		<div id="bylineInfo"><a href="#">Some Author</a></div>
		<span id="productSubtitle">Paperback</span>`

	parser := NewBookParser()
	record, err := parser.Extract(docFromHTML(t, html), "https://www.amazon.com/gp/product/page")
	require.NoError(t, err)

	assert.Equal(t, "Untracked Book", record.Title)
	assert.Equal(t, "Some Author", record.Author)
	assert.Empty(t, record.Summary)
	assert.Empty(t, record.PrintLength)
	assert.Empty(t, record.ASIN)
	assert.Empty(t, record.AmazonRating)
	assert.Empty(t, record.GoodreadsRating)
}

func TestExtractUnrecognizablePage(t *testing.T) {
	html := `<div><p>Sorry, we just need to make sure you're not a robot.</p></div>`

	parser := NewBookParser()
	record, err := parser.Extract(docFromHTML(t, html), "https://www.amazon.com/dp/B000000000")
	require.Error(t, err)
	assert.Nil(t, record)

	var extractErr *scraper.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "https://www.amazon.com/dp/B000000000", extractErr.URL)
}

func TestExtractASINFallbackFromURL(t *testing.T) {
	// No detail section on the page, so the ASIN comes from the URL and
	// counts toward the recognizability bar.
	html := `
		<span id="productTitle">Dune</span>
		<div id="bylineInfo"><a href="#">Frank Herbert</a></div>`

	parser := NewBookParser()
	record, err := parser.Extract(docFromHTML(t, html), "https://www.amazon.com/Dune/dp/B00B7NPRY8/ref=tmm_kin")
	require.NoError(t, err)
	assert.Equal(t, "B00B7NPRY8", record.ASIN)
}

func TestExtractRejectsPartiallyRenderedPage(t *testing.T) {
	parser := NewBookParser()

	tests := []struct {
		name string
		html string
		url  string
		ok   bool
	}{
		{
			name: "Title alone is not enough",
			html: `<span id="productTitle">Dune</span>`,
			url:  "https://www.amazon.com/gp/product/page",
			ok:   false,
		},
		{
			name: "Title plus URL ASIN is still only two fields",
			html: `<span id="productTitle">Dune</span>`,
			url:  "https://www.amazon.com/Dune/dp/B00B7NPRY8/",
			ok:   false,
		},
		{
			name: "Three headline fields pass",
			html: `
				<span id="productTitle">Dune</span>
				<span id="acrPopover"><span class="a-icon-alt">4.8 out of 5 stars</span></span>`,
			url: "https://www.amazon.com/Dune/dp/B00B7NPRY8/",
			ok:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := parser.Extract(docFromHTML(t, tt.html), tt.url)
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, record)
				return
			}
			require.Error(t, err)

			var extractErr *scraper.ExtractionError
			assert.ErrorAs(t, err, &extractErr)
		})
	}
}

func TestNumericToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"496 pages", "496"},
		{"4.7 out of 5 stars", "4.7"},
		{"248,220 ratings", "248220"},
		{"1,246", "1246"},
		{"no digits here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NumericToken(tt.input), "input %q", tt.input)
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Strips ref suffix",
			input:    "https://www.amazon.com/dp/B08FHBV4ZX/ref=sr_1_1",
			expected: "https://www.amazon.com/dp/B08FHBV4ZX/",
		},
		{
			name:     "Strips query parameters",
			input:    "https://www.amazon.com/dp/B08FHBV4ZX?keywords=hail+mary&qid=123",
			expected: "https://www.amazon.com/dp/B08FHBV4ZX/",
		},
		{
			name:     "Already clean URL gains trailing slash",
			input:    "https://www.amazon.com/dp/B08FHBV4ZX",
			expected: "https://www.amazon.com/dp/B08FHBV4ZX/",
		},
		{
			name:     "Idempotent",
			input:    "https://www.amazon.com/dp/B08FHBV4ZX/",
			expected: "https://www.amazon.com/dp/B08FHBV4ZX/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanURL(tt.input))
		})
	}
}
