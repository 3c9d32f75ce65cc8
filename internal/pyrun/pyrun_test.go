package pyrun

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

// manifestScript is a shell stand-in for an instrumented Python run:
// it prints ordinary output plus a well-formed sentinel line.
func manifestScript(title string) string {
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-"+title))
	return "echo computing\n" +
		"printf '%s\\n' '" + PlotMarker + `[{"type":"base64","title":"` + title + `","data":"` + payload + `"}]'`
}

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	r := &Runner{
		Executor: &Executor{Python: "sh", Timeout: 10 * time.Second},
		Public:   PublicDir{Dir: dir, BaseURL: "https://example.org", Route: "/temp/plot"},
		ImageDir: dir,
	}
	return r, dir
}

func TestRun_NoManifest(t *testing.T) {
	r, _ := newTestRunner(t)
	res, err := r.Run(context.Background(), Request{
		Code:         "echo just output",
		CapturePlots: false,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "just output\n" {
		t.Errorf("Stdout = %q, want verbatim script output", res.Stdout)
	}
	if len(res.Plots) != 0 {
		t.Errorf("Plots = %v, want empty", res.Plots)
	}
	if res.Debug.MarkerFound {
		t.Error("MarkerFound = true, want false")
	}
}

func TestRun_PersistToPublicDir(t *testing.T) {
	r, _ := newTestRunner(t)
	res, err := r.Run(context.Background(), Request{
		Code:           manifestScript("Trend"),
		SaveImages:     true,
		ReturnMarkdown: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Plots) != 1 {
		t.Fatalf("Plots = %+v, want one", res.Plots)
	}
	p := res.Plots[0]
	if p.URL == "" || p.Data != "" {
		t.Errorf("plot = %+v, want external reference with discarded payload", p)
	}
	if res.Debug.ImagesSaved != 1 {
		t.Errorf("ImagesSaved = %d, want 1", res.Debug.ImagesSaved)
	}
	if !res.Debug.MarkerFound {
		t.Error("MarkerFound = false, want true")
	}
	if strings.Contains(res.Stdout, PlotMarker) {
		t.Error("sentinel line leaked into user stdout")
	}

	// Round-trip: the document references the URL, never the payload.
	if !strings.Contains(res.Markdown, "]("+p.URL+")") {
		t.Errorf("Markdown = %q, want image reference to %q", res.Markdown, p.URL)
	}
	if strings.Contains(res.Markdown, "base64,") {
		t.Error("Markdown embeds a payload that should have been discarded")
	}
}

func TestRun_SaveDisabledEmbedsInline(t *testing.T) {
	r, _ := newTestRunner(t)
	res, err := r.Run(context.Background(), Request{
		Code:           manifestScript("Inline"),
		SaveImages:     false,
		ReturnMarkdown: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Plots[0].Data == "" {
		t.Error("payload missing with persistence disabled")
	}
	if !strings.Contains(res.Markdown, "](data:image/png;base64,") {
		t.Errorf("Markdown = %q, want inline data-URL image", res.Markdown)
	}
	if res.Debug.ImagesSaved != 0 {
		t.Errorf("ImagesSaved = %d, want 0", res.Debug.ImagesSaved)
	}
	if res.Debug.ImageDir != "" {
		t.Errorf("ImageDir = %q, want empty when saving was skipped", res.Debug.ImageDir)
	}
}

func TestRun_Timeout(t *testing.T) {
	r, _ := newTestRunner(t)
	res, err := r.Run(context.Background(), Request{
		Code:    "sleep 10",
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != TimeoutExitCode {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, TimeoutExitCode)
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "200ms") {
		t.Errorf("Stderr = %q, want the elapsed timeout value", res.Stderr)
	}
	if len(res.Plots) != 0 {
		t.Errorf("Plots = %v, want empty", res.Plots)
	}
}

func TestRun_UnwritableDirAllInline(t *testing.T) {
	r, _ := newTestRunner(t)
	res, err := r.Run(context.Background(), Request{
		Code:       manifestScript("Blocked"),
		SaveImages: true,
		ImageDir:   "/dev/null/not-a-dir",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Debug.ImagesSaved != 0 {
		t.Errorf("ImagesSaved = %d, want 0", res.Debug.ImagesSaved)
	}
	if res.Plots[0].Data == "" || res.Plots[0].URL != "" {
		t.Errorf("plot = %+v, want inline after persistence degraded", res.Plots[0])
	}
}

func TestPrepare(t *testing.T) {
	if got := Prepare("print(1)", false); got != "print(1)" {
		t.Errorf("Prepare without capture = %q, want unchanged code", got)
	}
	got := Prepare("print(1)", true)
	if !strings.HasPrefix(got, "print(1)") {
		t.Error("user code not at the start of the prepared script")
	}
	if !strings.Contains(got, PlotMarker) {
		t.Error("epilogue does not emit the sentinel token")
	}
	if !strings.Contains(got, "matplotlib.use('Agg')") {
		t.Error("epilogue does not force the non-interactive backend")
	}
}
