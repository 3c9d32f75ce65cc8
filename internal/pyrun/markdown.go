package pyrun

import (
	"fmt"
	"strings"
)

// composeMarkdown renders a single document combining stdout, stderr,
// and one subsection per plot, suitable for direct display in a chat
// UI. Inline payloads are embedded only when image saving was
// deliberately skipped; a plot that was meant to be saved but has
// neither URL nor payload renders a placeholder.
func composeMarkdown(stdout, stderr string, plots []Plot, saveImages bool) string {
	var parts []string

	parts = append(parts, "### Python Execution Result")

	out := "<no output>"
	if strings.TrimSpace(stdout) != "" {
		out = strings.TrimRight(stdout, " \t\n")
	}
	parts = append(parts, "#### Stdout\n\n```text\n"+out+"\n```")

	if strings.TrimSpace(stderr) != "" {
		parts = append(parts, "#### Stderr (warnings/errors)\n\n```text\n"+strings.TrimRight(stderr, " \t\n")+"\n```")
	}

	if len(plots) > 0 {
		parts = append(parts, "### Figures")
		for i, p := range plots {
			title := p.Title
			if title == "" {
				title = fmt.Sprintf("Plot %d", i+1)
			}
			switch {
			case p.URL != "":
				parts = append(parts, fmt.Sprintf("#### %s\n\n![%s](%s)", title, title, p.URL))
			case !saveImages && p.Data != "":
				parts = append(parts, fmt.Sprintf("#### %s\n\n![%s](%s)", title, title, p.Data))
			default:
				parts = append(parts, fmt.Sprintf("#### %s\n\n(Image not available)", title))
			}
		}
	}

	return strings.Join(parts, "\n\n")
}
