package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanq16/castrelay/internal/utils"
)

func TestOpenLayoutAndLock(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()

	if info, err := os.Stat(filepath.Join(dir, utils.OutputDirName)); err != nil || !info.IsDir() {
		t.Fatalf("output directory missing: %v", err)
	}

	_, err = Open(dir)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	var setupErr *utils.SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected SetupError, got %T", err)
	}
}

func TestReopenAfterClose(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ws.Close()
	ws2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	ws2.Close()
}

func TestSegmentPaths(t *testing.T) {
	ws := &Workspace{Root: "/work", OutputDir: "/work/output"}
	rec := utils.Recording{OwnerID: "someone", MovieID: "812"}
	if got := ws.TSPath(rec, 2); got != "/work/someone_812_2.ts" {
		t.Fatalf("unexpected ts path %q", got)
	}
	if got := ws.MKVPath(rec, 2); got != "/work/someone_812_2.mkv" {
		t.Fatalf("unexpected mkv path %q", got)
	}
	if got := ws.MP4Path(rec, 2); got != "/work/output/someone_812_2.mp4" {
		t.Fatalf("unexpected mp4 path %q", got)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	ws := &Workspace{Root: t.TempDir()}
	if err := ws.CheckFreeSpace(0); err != nil {
		t.Fatalf("zero threshold should pass: %v", err)
	}
	err := ws.CheckFreeSpace(1 << 30)
	var setupErr *utils.SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected SetupError for absurd threshold, got %v", err)
	}
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	ws, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()

	files := map[string]bool{
		"a_1_1.ts":         true,
		"a_1_2.mkv":        true,
		"b_9_1.ts":         false,
		"notes.txt":        false,
		"output/a_1_3.mp4": false,
		utils.LockFileName: false,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	rec := utils.Recording{OwnerID: "a", MovieID: "1"}
	removed, err := ws.Clean(rec, false)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removals, got %v", removed)
	}
	for name, gone := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if gone != os.IsNotExist(err) {
			t.Fatalf("%s: removed=%v, stat err=%v", name, gone, err)
		}
	}

	pending, err := ws.Pending(rec)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending upload, got %v (%v)", pending, err)
	}
	removed, err = ws.Clean(utils.Recording{}, true)
	if err != nil {
		t.Fatalf("clean all: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected b_9_1.ts and the mp4 removed, got %v", removed)
	}
}
