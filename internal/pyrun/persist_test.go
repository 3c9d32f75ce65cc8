package pyrun

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func inlinePlot(title string) Plot {
	return Plot{
		Type:  "base64",
		Title: title,
		Data:  "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes-"+title)),
	}
}

func TestPersist_PublicDir(t *testing.T) {
	dir := t.TempDir()
	p := &Persister{
		Dir:    dir,
		Public: PublicDir{Dir: dir, BaseURL: "https://example.org/", Route: "/temp/plot"},
	}

	plots := []Plot{inlinePlot("a")}
	saved := p.Persist(plots)
	if saved != 1 {
		t.Fatalf("saved = %d, want 1", saved)
	}
	if plots[0].Data != "" {
		t.Error("Data retained after transition to external reference")
	}
	if !strings.HasPrefix(plots[0].URL, "https://example.org/temp/plot/plot_") {
		t.Errorf("URL = %q, want base URL + route + filename", plots[0].URL)
	}
	if !strings.HasSuffix(plots[0].URL, ".png") {
		t.Errorf("URL = %q, want .png suffix", plots[0].URL)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png-bytes-a" {
		t.Errorf("file contents = %q, want decoded payload", data)
	}
}

func TestPersist_NonPublicDirStaysInline(t *testing.T) {
	dir := t.TempDir()
	p := &Persister{
		Dir:    dir,
		Public: PublicDir{Dir: t.TempDir(), BaseURL: "https://example.org", Route: "/temp/plot"},
	}

	plots := []Plot{inlinePlot("a")}
	saved := p.Persist(plots)
	if saved != 1 {
		t.Fatalf("saved = %d, want 1 (file still written for its side effect)", saved)
	}
	if plots[0].URL != "" {
		t.Errorf("URL = %q, want empty for non-servable directory", plots[0].URL)
	}
	if plots[0].Data == "" {
		t.Error("Data discarded without a public reference")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("got %d files, want 1", len(entries))
	}
}

func TestPersist_UnusableDirectory(t *testing.T) {
	// A regular file in place of the directory defeats MkdirAll
	// regardless of the uid running the tests.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &Persister{Dir: blocker}
	plots := []Plot{inlinePlot("a"), inlinePlot("b")}
	saved := p.Persist(plots)
	if saved != 0 {
		t.Errorf("saved = %d, want 0", saved)
	}
	for i, pl := range plots {
		if pl.Data == "" || pl.URL != "" {
			t.Errorf("plot %d mutated despite unusable directory: %+v", i, pl)
		}
	}
}

func TestPersist_BadPayloadSkipped(t *testing.T) {
	dir := t.TempDir()
	p := &Persister{Dir: dir}
	plots := []Plot{
		{Type: "base64", Data: "no-comma-no-data-url"},
		inlinePlot("ok"),
	}
	saved := p.Persist(plots)
	if saved != 1 {
		t.Errorf("saved = %d, want 1 (bad payload skipped, processing continues)", saved)
	}
	if plots[0].Data == "" {
		t.Error("failed plot lost its payload")
	}
}

func TestPersist_ConcurrentRunsDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	pub := PublicDir{Dir: dir, BaseURL: "https://example.org", Route: "/temp/plot"}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &Persister{Dir: dir, Public: pub}
			plots := []Plot{inlinePlot("c")}
			if saved := p.Persist(plots); saved != 1 {
				t.Errorf("saved = %d, want 1", saved)
			}
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d files, want 2 distinct files", len(entries))
	}
}

func TestURLFor(t *testing.T) {
	dir := t.TempDir()
	pub := PublicDir{Dir: dir, BaseURL: "https://example.org/", Route: "/temp/plot"}

	url, ok := pub.URLFor(dir, "f.png")
	if !ok {
		t.Fatal("ok = false for the servable directory")
	}
	if url != "https://example.org/temp/plot/f.png" {
		t.Errorf("url = %q", url)
	}

	// Unnormalized spelling of the same directory still matches.
	if _, ok := pub.URLFor(filepath.Join(dir, ".", "sub", ".."), "f.png"); !ok {
		t.Error("ok = false for normalized-equal path")
	}

	if _, ok := pub.URLFor(t.TempDir(), "f.png"); ok {
		t.Error("ok = true for a different directory")
	}

	var zero PublicDir
	if _, ok := zero.URLFor(dir, "f.png"); ok {
		t.Error("zero value reported a location as servable")
	}
}
