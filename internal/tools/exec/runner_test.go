package exec

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestShellCapturesOutput(t *testing.T) {
	r := NewRunner(t.TempDir())
	res, err := r.Shell(context.Background(), "echo out; echo err >&2; exit 3")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("stderr = %q", res.Stderr)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestArgvRunsWithoutShell(t *testing.T) {
	r := NewRunner(t.TempDir())
	res, err := r.Argv(context.Background(), []string{"echo", "a;b"}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	// no shell: the metacharacter is a literal argument
	if strings.TrimSpace(res.Stdout) != "a;b" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestArgvEnv(t *testing.T) {
	r := NewRunner(t.TempDir())
	res, err := r.Argv(context.Background(), []string{"/bin/sh", "-c", "echo $NERVE_X"}, "", map[string]string{"NERVE_X": "42"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "42" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	r := NewRunner(t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := r.Shell(ctx, "sleep 5"); err == nil {
		t.Error("expected a context error")
	}
}

func TestLimitedBufferTruncates(t *testing.T) {
	b := newLimitedBuffer(8)
	if _, err := b.Write([]byte("0123456789")); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "01234567") || !strings.Contains(out, "<truncated>") {
		t.Errorf("buffer = %q", out)
	}
}

func TestWorkspaceEscapeRejected(t *testing.T) {
	r := NewRunner(t.TempDir())
	if _, err := r.Argv(context.Background(), []string{"echo", "x"}, "../..", nil); err == nil {
		t.Error("expected workspace escape to be rejected")
	}
}
