// Package catalog reads the crawler's assessment catalog CSV.
package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// ExpectedMinRecords is the catalog size below which a crawl is considered incomplete.
const ExpectedMinRecords = 377

// Column names in the catalog header.
const (
	ColName        = "name"
	ColURL         = "url"
	ColDescription = "description"
	ColJobLevels   = "job_levels"
	ColLanguages   = "languages"
	ColLength      = "assessment_length"
	ColRemote      = "remote_testing"
	ColAdaptive    = "adaptive_irt"
	ColTestType    = "test_type"
	ColCategory    = "category"
)

var requiredColumns = []string{ColName, ColURL}

// Stats summarizes a cleaning pass.
type Stats struct {
	Rows       int
	Duplicates int
	Skipped    int // rows without a URL
	Kept       int
}

// Incomplete reports whether fewer records than expected survived cleaning.
func (s Stats) Incomplete() bool {
	return s.Kept < ExpectedMinRecords
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string) ([]domain.Assessment, Stats, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return Read(f)
}

// Read parses and cleans a catalog: duplicate URLs are dropped (first wins),
// missing fields become "", assessment_length becomes integer minutes.
func Read(r io.Reader) ([]domain.Assessment, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Stats{}, errors.New("catalog is empty")
		}
		return nil, Stats{}, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, Stats{}, fmt.Errorf("catalog: missing column %q", c)
		}
	}

	var (
		stats   Stats
		records []domain.Assessment
		seen    = make(map[string]struct{})
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return cleanField(row[i])
		}

		url := field(ColURL)
		if url == "" {
			stats.Skipped++
			continue
		}
		if _, dup := seen[url]; dup {
			stats.Duplicates++
			continue
		}
		seen[url] = struct{}{}

		records = append(records, domain.Assessment{
			Name:            field(ColName),
			URL:             url,
			Description:     field(ColDescription),
			TestTypes:       ParseTestTypes(field(ColTestType)),
			JobLevels:       field(ColJobLevels),
			Languages:       field(ColLanguages),
			Length:          ParseLength(field(ColLength)),
			RemoteSupport:   field(ColRemote),
			AdaptiveSupport: field(ColAdaptive),
			Category:        field(ColCategory),
		})
	}
	stats.Kept = len(records)
	return records, stats, nil
}

// cleanField trims whitespace and maps pandas' missing-value spelling to "".
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// ParseTestTypes accepts a Python list literal (['A', 'B']), a JSON array
// or a comma separated list. Catalog keys are mapped to vocabulary names.
func ParseTestTypes(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "[]" {
		return nil
	}

	var parts []string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &parts); err != nil {
			parts = splitListLiteral(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
		}
	} else {
		parts = strings.Split(s, ",")
	}

	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		t := domain.NormalizeTestType(strings.Trim(strings.TrimSpace(p), `'"`))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// splitListLiteral splits the inside of a Python list literal on commas
// that are not inside quotes.
func splitListLiteral(s string) []string {
	var (
		parts []string
		cur   strings.Builder
		quote rune
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ',':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(parts, cur.String())
}

// ParseLength extracts whole minutes from values like "30", "30.0" or
// "Approximate Completion Time in minutes = 30". Anything else is 0.
func ParseLength(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return int(f)
	}

	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0
	}
	return n
}
