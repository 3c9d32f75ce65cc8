package resource

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// Analysis summarizes the structure and quality of a tabular resource:
// shape, column types, missing values, cardinality, sample values, and
// basic numeric statistics.
type Analysis struct {
	Shape          [2]int                    `json:"shape"` // rows (excluding header), columns
	Columns        []string                  `json:"columns"`
	Types          map[string]string         `json:"dtypes"`
	Missing        map[string]int            `json:"missing_values"`
	UniqueCounts   map[string]int            `json:"unique_counts"`
	SampleValues   map[string][]string       `json:"sample_values"`
	NumericSummary map[string]NumericSummary `json:"numeric_summary"`
}

// NumericSummary holds basic statistics for a numeric column.
type NumericSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Analyse summarizes a tabular resource, fetching and caching it first
// when it has not been retrieved yet.
func (f *Fetcher) Analyse(ctx context.Context, resourceID string) (*Analysis, error) {
	path := f.CachePath(resourceID, "csv")
	data, err := os.ReadFile(path)
	if err != nil {
		if _, ferr := f.Tabular(ctx, resourceID, true); ferr != nil {
			return nil, ferr
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading cached resource %s: %w", resourceID, err)
		}
	}

	records, err := parseCSV(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing cached resource %s: %w", resourceID, err)
	}
	return analyseRecords(records), nil
}

const maxSampleValues = 5

func analyseRecords(records [][]string) *Analysis {
	header := records[0]
	rows := records[1:]

	a := &Analysis{
		Shape:          [2]int{len(rows), len(header)},
		Columns:        header,
		Types:          make(map[string]string, len(header)),
		Missing:        make(map[string]int, len(header)),
		UniqueCounts:   make(map[string]int, len(header)),
		SampleValues:   make(map[string][]string, len(header)),
		NumericSummary: make(map[string]NumericSummary),
	}

	for col, name := range header {
		missing := 0
		unique := make(map[string]bool)
		var samples []string
		allInt, allFloat := true, true
		var sum, min, max float64
		numeric := 0

		for _, row := range rows {
			v := row[col]
			if v == "" {
				missing++
				continue
			}
			if !unique[v] {
				unique[v] = true
				if len(samples) < maxSampleValues {
					samples = append(samples, v)
				}
			}
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
			fv, err := strconv.ParseFloat(v, 64)
			if err != nil {
				allFloat = false
				continue
			}
			if numeric == 0 || fv < min {
				min = fv
			}
			if numeric == 0 || fv > max {
				max = fv
			}
			sum += fv
			numeric++
		}

		present := len(rows) - missing
		switch {
		case present == 0:
			a.Types[name] = "object"
		case allInt:
			a.Types[name] = "int64"
		case allFloat:
			a.Types[name] = "float64"
		default:
			a.Types[name] = "object"
		}

		a.Missing[name] = missing
		a.UniqueCounts[name] = len(unique)
		a.SampleValues[name] = samples

		if present > 0 && (allInt || allFloat) {
			a.NumericSummary[name] = NumericSummary{
				Count: numeric,
				Mean:  sum / float64(numeric),
				Min:   min,
				Max:   max,
			}
		}
	}
	return a
}
