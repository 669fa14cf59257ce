package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tanq16/castrelay/internal/utils"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestRunSuccessWritesInDir(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "tool", `echo "$@" > args.txt`)
	r := NewRunner(dir, 5*time.Second)
	if err := r.Run(context.Background(), stub, "--output", "a.ts", "--threads", "3"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "--output a.ts --threads 3" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "tool", "echo boom >&2\nexit 3")
	err := NewRunner(dir, 5*time.Second).Run(context.Background(), stub)
	var toolErr *utils.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.ExitCode != 3 || !strings.Contains(toolErr.Output, "boom") {
		t.Fatalf("unexpected tool error %+v", toolErr)
	}
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "tool", "exec sleep 10")
	start := time.Now()
	err := NewRunner(dir, 200*time.Millisecond).Run(context.Background(), stub)
	var toolErr *utils.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if time.Since(start) > 8*time.Second {
		t.Fatal("timeout did not stop the tool")
	}
}

func TestRunMissingBinary(t *testing.T) {
	err := NewRunner(t.TempDir(), time.Second).Run(context.Background(), "castrelay-no-such-tool")
	var toolErr *utils.ToolError
	if !errors.As(err, &toolErr) || toolErr.ExitCode != -1 {
		t.Fatalf("expected ToolError with exit -1, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "mkvmerge", "exit 0")
	statuses := Check(Requirements("", stub, "castrelay-no-such-ffmpeg"))
	if statuses[0].Available || statuses[0].Detail != "command not configured" {
		t.Fatalf("unexpected minyami status %+v", statuses[0])
	}
	if !statuses[1].Available || statuses[1].Path != stub {
		t.Fatalf("unexpected mkvmerge status %+v", statuses[1])
	}
	missing := Missing(statuses)
	if len(missing) != 2 || missing[0] != "minyami" || missing[1] != "ffmpeg" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}
