package pyrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Executor spawns Python child processes with a wall-clock timeout and
// per-stream output caps.
type Executor struct {
	Python    string        // interpreter binary; empty uses DefaultPython
	Timeout   time.Duration // default budget when a call passes none
	MaxOutput int           // per-stream capture cap in bytes
}

// ExecResult holds the raw streams of one child process.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int // TimeoutExitCode when the budget was exceeded
	TimedOut bool
}

// Exec writes the script to a uniquely named temporary file and runs
// it under the interpreter with a copied environment. The temp file is
// removed on every exit path. On deadline expiry the child is killed
// before Exec returns; buffered output is discarded and stderr carries
// a fixed message naming the elapsed budget. Only a spawn-level
// failure returns an error.
func (e *Executor) Exec(ctx context.Context, script string, timeout time.Duration, debug bool) (*ExecResult, error) {
	python := e.Python
	if python == "" {
		python = DefaultPython
	}
	if timeout <= 0 {
		timeout = e.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := e.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	// A file on disk sidesteps interpreter quoting hazards that passing
	// the script on the command line would invite.
	tmp, err := os.CreateTemp("", "civic-run-*.py")
	if err != nil {
		return nil, fmt.Errorf("creating script file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path) // best-effort, non-fatal

	if _, err := tmp.WriteString(script); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing script file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing script file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, python, path)
	cmd.Env = buildEnv(os.Environ(), debug)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		// CommandContext kills the child and Run returns only after the
		// process is reaped, so nothing leaks past this point. Partial
		// output is dropped; the caller never sees a half-written
		// manifest.
		return &ExecResult{
			Stderr:   fmt.Appendf(nil, "Timed out after %v", timeout),
			ExitCode: TimeoutExitCode,
			TimedOut: true,
		}, nil
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Interpreter not found or other spawn error.
			return nil, fmt.Errorf("executing %s: %w", python, runErr)
		}
	}

	return &ExecResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// buildEnv copies the base environment, stripping any inherited debug
// toggle and re-adding it per request. The process-wide environment is
// never mutated.
func buildEnv(base []string, debug bool) []string {
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, debugEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	if debug {
		env = append(env, debugEnv+"=1")
	}
	return env
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
