package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// ReadWorklist loads the input CSV and returns its URLs in file order.
// The URL column is found by header name: "url" or "amazon_url" exactly,
// falling back to the first header containing "url".
func ReadWorklist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open worklist %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read worklist %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worklist %s is empty", path)
	}

	col := urlColumn(rows[0])
	if col < 0 {
		return nil, fmt.Errorf("worklist %s has no URL column", path)
	}

	var urls []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if url := strings.TrimSpace(row[col]); url != "" {
			urls = append(urls, url)
		}
	}

	return urls, nil
}

func urlColumn(header []string) int {
	names := make([]string, len(header))
	for i, name := range header {
		names[i] = strings.ToLower(strings.TrimSpace(name))
	}

	for i, name := range names {
		if name == "url" || name == "amazon_url" {
			return i
		}
	}

	// Substring fallback for worklists with a single, differently named
	// URL column.
	for i, name := range names {
		if strings.Contains(name, "url") {
			return i
		}
	}
	return -1
}
