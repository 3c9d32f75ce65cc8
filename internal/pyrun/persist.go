package pyrun

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PublicDir maps files written beneath one designated directory to
// stable public URLs. The zero value reports every location as not
// servable, in which case persisted files are written for their side
// effect only and plots stay inline.
type PublicDir struct {
	Dir     string // the publicly servable directory
	BaseURL string // e.g. https://www.liverpoolcivicdata.com
	Route   string // URL path prefix, e.g. /temp/plot
}

// URLFor returns the public URL for filename written under dir, or
// ok=false when dir is not the servable location. The comparison is
// path-normalized so spellings like "a/./b" still match.
func (p PublicDir) URLFor(dir, filename string) (string, bool) {
	if p.Dir == "" || p.BaseURL == "" {
		return "", false
	}
	got, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	want, err := filepath.Abs(p.Dir)
	if err != nil || got != want {
		return "", false
	}
	return strings.TrimSuffix(p.BaseURL, "/") + path.Join("/", p.Route, filename), true
}

// Persister writes decoded plot payloads into a target directory.
type Persister struct {
	Dir    string
	Public PublicDir
}

// Persist writes each inline plot to a uniquely named PNG file and
// returns the number of files written. A plot transitions to an
// external URL reference, discarding its payload, only when the target
// directory is the publicly servable one. An unusable directory
// disables persistence for the whole call; a per-plot failure leaves
// only that plot inline. Files are never overwritten: names carry a
// random UUID, so concurrent runs can share the directory safely.
func (p *Persister) Persist(plots []Plot) int {
	if len(plots) == 0 {
		return 0
	}
	if err := ensureWritable(p.Dir); err != nil {
		log.Printf("plot directory %s is not writable, keeping plots inline: %v", p.Dir, err)
		return 0
	}

	saved := 0
	for i := range plots {
		plot := &plots[i]
		if plot.Type != "base64" || plot.Data == "" {
			continue
		}
		raw, err := decodeDataURL(plot.Data)
		if err != nil {
			log.Printf("decoding plot %d: %v", i+1, err)
			continue
		}

		u := uuid.New()
		name := "plot_" + hex.EncodeToString(u[:]) + ".png"
		// 0644 keeps the file readable by the web server.
		if err := os.WriteFile(filepath.Join(p.Dir, name), raw, 0o644); err != nil {
			log.Printf("writing plot %d: %v", i+1, err)
			continue
		}
		saved++

		if url, ok := p.Public.URLFor(p.Dir, name); ok {
			plot.URL = url
			plot.Data = "" // payload discarded once externally reachable
		}
	}
	return saved
}

// ensureWritable creates the directory if missing and probes it with a
// throwaway file, since directory permission bits alone do not prove
// writability.
func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// decodeDataURL extracts and decodes the base64 body of a
// data:image/png;base64 payload.
func decodeDataURL(s string) ([]byte, error) {
	_, b64, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("payload is not a data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return raw, nil
}
