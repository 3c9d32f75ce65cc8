package pyrun

// TimeoutExitCode is reported when the child is killed for exceeding
// its wall-clock budget. Python processes exit with 0-255, so -1 never
// collides with a real interpreter exit.
const TimeoutExitCode = -1

// Plot describes one visual artifact produced by a script run.
// A plot is emitted inline (Type "base64" with a data-URL payload) and
// transitions to an external URL reference at most once, when it is
// persisted into the publicly servable directory. Exactly one of Data
// and URL is set after persistence.
type Plot struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Data  string `json:"data,omitempty"` // inline data:image/png;base64 payload
	URL   string `json:"url,omitempty"`  // public reference once persisted
}

// Result holds the structured output of one script execution.
type Result struct {
	Stdout   string    `json:"stdout"`
	Stderr   string    `json:"stderr"`
	ExitCode int       `json:"exit_code"` // TimeoutExitCode when the budget was exceeded
	Plots    []Plot    `json:"plots"`     // manifest discovery order
	Markdown string    `json:"markdown,omitempty"`
	Debug    DebugInfo `json:"debug_info"`
}

// DebugInfo carries diagnostic counters for troubleshooting. It is
// always populated, regardless of whether markdown was requested.
type DebugInfo struct {
	PlotsFound  int      `json:"plots_found"`
	PlotTypes   []string `json:"plot_types,omitempty"`
	MarkerFound bool     `json:"marker_found"`
	StdoutLen   int      `json:"stdout_length"`
	StderrLen   int      `json:"stderr_length"`
	ImagesSaved int      `json:"images_saved"`
	ImageDir    string   `json:"image_path,omitempty"` // set only when saving was requested
}
