// Package resource fetches CKAN resource content and caches tabular
// data on disk at a predictable path. Executed analysis scripts read
// cached files by the same <cache dir>/<resource_id>.csv convention,
// so the cache doubles as the hand-off point between the catalog tools
// and the Python execution tool.
package resource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hannahwhyatt/civic-data-server/internal/ckan"
)

// PreviewRows caps how many data rows a preview returns.
const PreviewRows = 50

// Fetcher downloads resource content through the catalog and caches
// normalized CSV text.
type Fetcher struct {
	CKAN       *ckan.Client
	CacheDir   string
	Index      *Index       // optional; fetches are recorded when set
	HTTPClient *http.Client // optional; a 60s-timeout client is used when nil
}

// CachePath returns the conventional on-disk location for a cached
// resource.
func (f *Fetcher) CachePath(resourceID, ext string) string {
	return filepath.Join(f.CacheDir, resourceID+"."+ext)
}

// Content returns resource content by declared format. Tabular (CSV)
// text is fetched, normalized, and cached; PDF and Excel extraction
// are handled by an external service and are rejected here with an
// explicit error.
func (f *Fetcher) Content(ctx context.Context, resourceID, format string, previewOnly bool) (string, error) {
	switch strings.ToLower(format) {
	case "csv":
		return f.Tabular(ctx, resourceID, previewOnly)
	case "pdf", "excel", "xlsx", "xlsm", "xls":
		return "", fmt.Errorf("%s extraction is not handled by this server; if an extractor has cached the resource it is at %s", strings.ToLower(format), f.CachePath(resourceID, "txt"))
	default:
		return "", fmt.Errorf("unsupported resource format %q (supported: CSV)", format)
	}
}

// Tabular returns the text of a CSV resource. The cache is consulted
// first; on a miss the resource is resolved via resource_show,
// downloaded, parsed with delimiter sniffing and row normalization,
// and rewritten to the cache path as plain comma-separated text.
func (f *Fetcher) Tabular(ctx context.Context, resourceID string, previewOnly bool) (string, error) {
	path := f.CachePath(resourceID, "csv")
	if data, err := os.ReadFile(path); err == nil {
		records, err := parseCSV(string(data))
		if err == nil {
			return renderTable(records, previewOnly), nil
		}
		// A corrupt cache file falls through to a fresh fetch.
	}

	res, err := f.CKAN.ShowResource(ctx, resourceID)
	if err != nil {
		return "", fmt.Errorf("resolving resource %s: %w", resourceID, err)
	}
	if res.URL == "" {
		return "", fmt.Errorf("resource %s has no download URL", resourceID)
	}

	raw, err := f.download(ctx, res.URL)
	if err != nil {
		return "", fmt.Errorf("downloading resource %s: %w", resourceID, err)
	}

	text, err := decodeText(raw)
	if err != nil {
		return "", fmt.Errorf("decoding resource %s: %w", resourceID, err)
	}
	records, err := parseCSV(text)
	if err != nil {
		return "", fmt.Errorf("parsing resource %s: %w", resourceID, err)
	}

	normalized := writeCSV(records)
	if err := os.MkdirAll(f.CacheDir, 0o755); err == nil {
		if err := os.WriteFile(path, []byte(normalized), 0o644); err == nil && f.Index != nil {
			_ = f.Index.Record(ctx, Entry{
				ResourceID: resourceID,
				Name:       res.Name,
				Format:     res.Format,
				URL:        res.URL,
				Path:       path,
				Size:       int64(len(normalized)),
			})
		}
	}

	return renderTable(records, previewOnly), nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	client := f.HTTPClient
	if client == nil {
		client = downloadClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

var downloadClient = &http.Client{Timeout: 60 * time.Second}

// decodeText interprets raw bytes as UTF-8, falling back to Latin-1
// (under which every byte sequence is valid) for legacy exports.
func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

// parseCSV parses tabular text with delimiter sniffing and normalizes
// every row to the header width.
func parseCSV(text string) ([][]string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("no tabular data found")
	}

	width := len(records[0])
	for i, row := range records[1:] {
		switch {
		case len(row) < width:
			padded := make([]string, width)
			copy(padded, row)
			records[i+1] = padded
		case len(row) > width:
			records[i+1] = row[:width]
		}
	}
	return records, nil
}

// sniffDelimiter picks the candidate delimiter occurring most often in
// the first line, defaulting to a comma.
func sniffDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	best, bestCount := ',', 0
	for _, cand := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

// writeCSV renders records as plain comma-separated text.
func writeCSV(records [][]string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.WriteAll(records)
	w.Flush()
	return b.String()
}

// renderTable renders records for display, capped at PreviewRows data
// rows when previewOnly is set.
func renderTable(records [][]string, previewOnly bool) string {
	if previewOnly && len(records) > PreviewRows+1 {
		records = records[:PreviewRows+1]
	}
	return writeCSV(records)
}
