package pyrun

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// The executor only needs an interpreter that runs a script file, so
// tests use sh to stay independent of an installed Python toolchain.
func newTestExecutor() *Executor {
	return &Executor{Python: "sh", Timeout: 10 * time.Second, MaxOutput: 1 << 20}
}

func TestExec_Success(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Exec(context.Background(), "echo hello", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(string(res.Stdout), "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.TimedOut {
		t.Error("TimedOut = true, want false")
	}
}

func TestExec_NonZeroExit(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Exec(context.Background(), "exit 3", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestExec_StderrCaptured(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Exec(context.Background(), "echo oops >&2", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(res.Stderr), "oops") {
		t.Errorf("Stderr = %q, want to contain 'oops'", res.Stderr)
	}
}

func TestExec_Timeout(t *testing.T) {
	e := newTestExecutor()
	res, err := e.Exec(context.Background(), "echo partial; sleep 10", 200*time.Millisecond, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("TimedOut = false, want true")
	}
	if res.ExitCode != TimeoutExitCode {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, TimeoutExitCode)
	}
	if len(res.Stdout) != 0 {
		t.Errorf("Stdout = %q, want empty (partial output discarded)", res.Stdout)
	}
	if want := "Timed out after 200ms"; string(res.Stderr) != want {
		t.Errorf("Stderr = %q, want %q", res.Stderr, want)
	}
}

func TestExec_SpawnFailure(t *testing.T) {
	e := &Executor{Python: "nonexistent-interpreter-xyz-123"}
	_, err := e.Exec(context.Background(), "echo hi", 0, false)
	if err == nil {
		t.Fatal("expected error for missing interpreter")
	}
	if !strings.Contains(err.Error(), "nonexistent-interpreter-xyz-123") {
		t.Errorf("error = %q, want to mention the interpreter", err)
	}
}

func TestExec_DebugToggle(t *testing.T) {
	e := newTestExecutor()

	res, err := e.Exec(context.Background(), "echo toggle=$MCP_RUN_PY_DEBUG", 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(res.Stdout), "toggle=1") {
		t.Errorf("Stdout = %q, want toggle=1 with debug enabled", res.Stdout)
	}

	res, err = e.Exec(context.Background(), "echo toggle=$MCP_RUN_PY_DEBUG", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(res.Stdout), "toggle=\n") && !strings.Contains(string(res.Stdout), "toggle=") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if strings.Contains(string(res.Stdout), "toggle=1") {
		t.Errorf("Stdout = %q, debug toggle leaked with debug disabled", res.Stdout)
	}
}

func TestExec_OutputTruncation(t *testing.T) {
	e := newTestExecutor()
	e.MaxOutput = 64

	res, err := e.Exec(context.Background(), "i=0; while [ $i -lt 100 ]; do echo 0123456789; i=$((i+1)); done", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stdout) > e.MaxOutput {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), e.MaxOutput)
	}
}

func TestBuildEnv(t *testing.T) {
	base := []string{"PATH=/bin", debugEnv + "=1", "HOME=/root"}

	env := buildEnv(base, false)
	if bytes.Contains([]byte(strings.Join(env, "\n")), []byte(debugEnv+"=")) {
		t.Errorf("env = %v, inherited toggle not stripped", env)
	}

	env = buildEnv(base, true)
	found := 0
	for _, kv := range env {
		if kv == debugEnv+"=1" {
			found++
		}
	}
	if found != 1 {
		t.Errorf("env = %v, want exactly one %s=1", env, debugEnv)
	}
}
