package pyrun

import (
	"encoding/json"
	"strings"
)

// PlotMarker prefixes the one stdout line that carries the encoded
// plot manifest. The token is kept stable so scripts written against
// earlier versions of the collector keep working.
const PlotMarker = "__MCP_PLOTS__="

// SplitPlots scans raw stdout for sentinel-prefixed manifest lines.
// It returns the user-visible stdout with those lines removed, the
// decoded plot list, and whether the sentinel was seen at all.
// If the sentinel appears more than once the last occurrence wins; a
// malformed manifest degrades to an empty list but still counts as
// seen. All other lines are preserved in their original order.
func SplitPlots(stdout string) (string, []Plot, bool) {
	lines := strings.Split(stdout, "\n")

	var plots []Plot
	found := false
	remaining := make([]string, 0, len(lines))
	for _, line := range lines {
		if !strings.HasPrefix(line, PlotMarker) {
			remaining = append(remaining, line)
			continue
		}
		found = true
		var decoded []Plot
		if err := json.Unmarshal([]byte(line[len(PlotMarker):]), &decoded); err != nil {
			plots = nil
		} else {
			plots = decoded
		}
	}
	if !found {
		return stdout, nil, false
	}
	return strings.Join(remaining, "\n"), plots, true
}
