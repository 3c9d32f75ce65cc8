// Package pyrun executes user-supplied Python scripts in an isolated
// subprocess and post-processes their output. Matplotlib figures are
// carried out of the child on a sentinel-prefixed stdout line,
// optionally persisted as PNG files, and folded into a structured
// result together with captured stdout/stderr and the exit code.
package pyrun

import (
	"context"
	"time"
)

// Defaults applied when a request or runner leaves a field unset.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB per stream
	DefaultPython    = "python3"
)

// Request describes one script execution. Requests are single-use
// value objects; nothing is shared across invocations except the
// image directory, which is append-only.
type Request struct {
	Code           string        // script text to execute
	Timeout        time.Duration // wall-clock budget; <= 0 falls back to the runner default
	CapturePlots   bool          // instrument the script to collect figures
	SaveImages     bool          // persist captured figures as PNG files
	ImageDir       string        // target directory; empty uses the runner default
	ReturnMarkdown bool          // compose a rendered markdown document
	Debug          bool          // propagate the verbose-diagnostics toggle to the child
}

// Runner wires the executor and persistence capability together.
// A single Runner is safe for concurrent use: each Run spawns its own
// child process, and plot filenames are collision-resistant so
// concurrent persists into the same directory need no locking.
type Runner struct {
	Executor *Executor
	Public   PublicDir // maps persisted files to public URLs
	ImageDir string    // default persistence directory
}

// Run executes the request end to end: prepare, execute, split out the
// plot manifest, persist images, and compose the result. Only a spawn
// failure aborts the run; timeouts, decode failures, and persistence
// failures all degrade into a well-formed Result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	script := Prepare(req.Code, req.CapturePlots)

	er, err := r.Executor.Exec(ctx, script, req.Timeout, req.Debug)
	if err != nil {
		return nil, err
	}

	stdout, plots, markerFound := SplitPlots(string(er.Stdout))
	stderr := string(er.Stderr)

	dir := req.ImageDir
	if dir == "" {
		dir = r.ImageDir
	}

	saved := 0
	if req.SaveImages && len(plots) > 0 {
		p := &Persister{Dir: dir, Public: r.Public}
		saved = p.Persist(plots)
	}

	res := &Result{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: er.ExitCode,
		Plots:    plots,
		Debug: DebugInfo{
			PlotsFound:  len(plots),
			PlotTypes:   plotTypes(plots),
			MarkerFound: markerFound,
			StdoutLen:   len(stdout),
			StderrLen:   len(stderr),
			ImagesSaved: saved,
		},
	}
	if req.SaveImages {
		res.Debug.ImageDir = dir
	}
	if req.ReturnMarkdown {
		res.Markdown = composeMarkdown(stdout, stderr, plots, req.SaveImages)
	}
	return res, nil
}

func plotTypes(plots []Plot) []string {
	if len(plots) == 0 {
		return nil
	}
	types := make([]string, len(plots))
	for i, p := range plots {
		types[i] = p.Type
	}
	return types
}
