package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Dataset column names after header normalisation.
const (
	ColQuery = "query"
	ColURL   = "assessment_url"
)

// LabelledQuery is one query with the assessment URLs a human judged relevant.
type LabelledQuery struct {
	Query    string
	Relevant []string
}

// ReadLabelled reads a Query,Assessment_url CSV and groups URLs per query.
// Queries are returned sorted.
func ReadLabelled(r io.Reader) ([]LabelledQuery, error) {
	rows, cols, err := readRows(r, ColQuery, ColURL)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]string)
	for _, row := range rows {
		q := strings.TrimSpace(row[cols[ColQuery]])
		if q == "" {
			continue
		}
		grouped[q] = append(grouped[q], strings.TrimSpace(row[cols[ColURL]]))
	}

	out := make([]LabelledQuery, 0, len(grouped))
	for q, urls := range grouped {
		out = append(out, LabelledQuery{Query: q, Relevant: urls})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out, nil
}

// ReadQueries reads the query column of a CSV, keeping file order and duplicates.
func ReadQueries(r io.Reader) ([]string, error) {
	rows, cols, err := readRows(r, ColQuery)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if q := strings.TrimSpace(row[cols[ColQuery]]); q != "" {
			out = append(out, q)
		}
	}
	return out, nil
}

func readRows(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("empty dataset")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		cols[h] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q in header %v", name, header)
		}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		for _, name := range required {
			if cols[name] >= len(rec) {
				return nil, nil, fmt.Errorf("row %v: missing %s", rec, name)
			}
		}
		rows = append(rows, rec)
	}
	return rows, cols, nil
}
