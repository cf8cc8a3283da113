package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry is one row of the portfolio dataset.
type Entry struct {
	Techstack string
	Links     string
}

// ReadDataset parses a CSV file with Techstack and Links columns (header names
// are matched case-insensitively; other columns are ignored).
func ReadDataset(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("portfolio dataset: %w", err)
	}
	defer f.Close()
	return parseDataset(f)
}

func parseDataset(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("portfolio dataset: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("portfolio dataset: reading header: %w", err)
	}

	techCol, linksCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "techstack":
			techCol = i
		case "links":
			linksCol = i
		}
	}
	if techCol < 0 || linksCol < 0 {
		return nil, fmt.Errorf("portfolio dataset: header %v must contain Techstack and Links", header)
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("portfolio dataset: line %d: %w", line, err)
		}
		entries = append(entries, Entry{
			Techstack: field(rec, techCol),
			Links:     field(rec, linksCol),
		})
	}
	return entries, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
