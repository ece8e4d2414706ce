package models

// BookRecord holds every attribute scraped from a single product page.
// A field that could not be located is the empty string; records always
// carry all fourteen columns so absence is explicit, never an omission.
type BookRecord struct {
	URL                  string `json:"url"`
	Title                string `json:"title"`
	Author               string `json:"author"`
	Format               string `json:"format"`
	Summary              string `json:"summary"`
	PrintLength          string `json:"print_length"`
	ASIN                 string `json:"asin"`
	Publisher            string `json:"publisher"`
	PublicationDate      string `json:"publication_date"`
	BestSellersRank      string `json:"best_sellers_rank"`
	AmazonRating         string `json:"amazon_rating"`
	AmazonRatingCount    string `json:"amazon_rating_count"`
	GoodreadsRating      string `json:"goodreads_rating"`
	GoodreadsRatingCount string `json:"goodreads_rating_count"`
}

// RecordHeader returns the CSV column names in output order.
func RecordHeader() []string {
	return []string{
		"url",
		"title",
		"author",
		"format",
		"summary",
		"print_length",
		"asin",
		"publisher",
		"publication_date",
		"best_sellers_rank",
		"amazon_rating",
		"amazon_rating_count",
		"goodreads_rating",
		"goodreads_rating_count",
	}
}

// Row returns the record's values in the same order as RecordHeader.
func (r *BookRecord) Row() []string {
	return []string{
		r.URL,
		r.Title,
		r.Author,
		r.Format,
		r.Summary,
		r.PrintLength,
		r.ASIN,
		r.Publisher,
		r.PublicationDate,
		r.BestSellersRank,
		r.AmazonRating,
		r.AmazonRatingCount,
		r.GoodreadsRating,
		r.GoodreadsRatingCount,
	}
}

// RecordFromRow rebuilds a record from a CSV row written by Row.
func RecordFromRow(row []string) (*BookRecord, bool) {
	if len(row) != len(RecordHeader()) {
		return nil, false
	}
	return &BookRecord{
		URL:                  row[0],
		Title:                row[1],
		Author:               row[2],
		Format:               row[3],
		Summary:              row[4],
		PrintLength:          row[5],
		ASIN:                 row[6],
		Publisher:            row[7],
		PublicationDate:      row[8],
		BestSellersRank:      row[9],
		AmazonRating:         row[10],
		AmazonRatingCount:    row[11],
		GoodreadsRating:      row[12],
		GoodreadsRatingCount: row[13],
	}, true
}
