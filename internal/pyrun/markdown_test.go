package pyrun

import (
	"strings"
	"testing"
)

func TestComposeMarkdown_EmptyStdoutPlaceholder(t *testing.T) {
	md := composeMarkdown("", "", nil, false)
	if !strings.Contains(md, "<no output>") {
		t.Errorf("markdown = %q, want <no output> placeholder", md)
	}
	if strings.Contains(md, "Stderr") {
		t.Error("stderr block rendered for empty stderr")
	}
}

func TestComposeMarkdown_StderrBlock(t *testing.T) {
	md := composeMarkdown("ok\n", "warning: deprecated\n", nil, false)
	if !strings.Contains(md, "#### Stderr (warnings/errors)") {
		t.Errorf("markdown = %q, want stderr block", md)
	}
	if strings.Contains(md, "ok\n\n```") {
		t.Error("trailing whitespace not stripped from stdout block")
	}
}

func TestComposeMarkdown_FailedPersistPlaceholder(t *testing.T) {
	// Saving was requested but this plot kept neither URL nor payload.
	md := composeMarkdown("", "", []Plot{{Type: "base64", Title: "Lost"}}, true)
	if !strings.Contains(md, "#### Lost") {
		t.Errorf("markdown = %q, want titled subsection", md)
	}
	if !strings.Contains(md, "(Image not available)") {
		t.Errorf("markdown = %q, want placeholder", md)
	}
}

func TestComposeMarkdown_UntitledPlotNumbered(t *testing.T) {
	md := composeMarkdown("", "", []Plot{{Type: "base64", URL: "https://example.org/p.png"}}, true)
	if !strings.Contains(md, "#### Plot 1") {
		t.Errorf("markdown = %q, want generated title", md)
	}
}

func TestComposeMarkdown_InlineOnlyWhenSaveSkipped(t *testing.T) {
	plot := Plot{Type: "base64", Title: "T", Data: "data:image/png;base64,AAAA"}

	// Persistence attempted (saveImages=true) but the plot stayed
	// inline: the payload must not be embedded.
	md := composeMarkdown("", "", []Plot{plot}, true)
	if strings.Contains(md, "base64,AAAA") {
		t.Error("payload embedded although saving was attempted")
	}

	md = composeMarkdown("", "", []Plot{plot}, false)
	if !strings.Contains(md, "![T](data:image/png;base64,AAAA)") {
		t.Errorf("markdown = %q, want inline image when saving was skipped", md)
	}
}
