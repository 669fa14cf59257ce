package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/tanq16/castrelay/internal/utils"
)

var ErrLocked = errors.New("another castrelay run holds the work directory")

// Workspace is the work directory where intermediates live and the output/ folder
// where finished files wait for upload.
type Workspace struct {
	Root      string
	OutputDir string
	lock      *flock.Flock
}

// Open creates the directory layout and takes an exclusive lock on it.
func Open(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &utils.SetupError{Reason: "work directory", Err: err}
	}
	ws := &Workspace{
		Root:      abs,
		OutputDir: filepath.Join(abs, utils.OutputDirName),
	}
	if err := os.MkdirAll(ws.OutputDir, 0755); err != nil {
		return nil, &utils.SetupError{Reason: "work directory", Err: fmt.Errorf("error creating output directory: %v", err)}
	}
	ws.lock = flock.New(filepath.Join(abs, utils.LockFileName))
	ok, err := ws.lock.TryLock()
	if err != nil {
		return nil, &utils.SetupError{Reason: "work directory", Err: fmt.Errorf("acquire lock: %w", err)}
	}
	if !ok {
		return nil, &utils.SetupError{Reason: abs, Err: ErrLocked}
	}
	log.Debug().Str("op", "workspace/open").Msgf("locked work directory %s", abs)
	return ws, nil
}

func (w *Workspace) Close() {
	if w.lock == nil {
		return
	}
	if err := w.lock.Unlock(); err != nil {
		log.Warn().Str("op", "workspace/close").Err(err).Msg("failed to release work directory lock")
	}
}

// SegmentBase is the file stem shared by every artifact of one segment.
func SegmentBase(rec utils.Recording, index int) string {
	return fmt.Sprintf("%s_%s_%d", rec.OwnerID, rec.MovieID, index)
}

func (w *Workspace) TSPath(rec utils.Recording, index int) string {
	return filepath.Join(w.Root, SegmentBase(rec, index)+".ts")
}

func (w *Workspace) MKVPath(rec utils.Recording, index int) string {
	return filepath.Join(w.Root, SegmentBase(rec, index)+".mkv")
}

func (w *Workspace) MP4Path(rec utils.Recording, index int) string {
	return filepath.Join(w.OutputDir, SegmentBase(rec, index)+".mp4")
}

// FreeSpace reports free and total bytes on the volume holding dir.
func FreeSpace(dir string) (free, total uint64, err error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, 0, err
	}
	return usage.Free, usage.Total, nil
}

// CheckFreeSpace fails when the volume holding the work directory has less than minGiB free.
func (w *Workspace) CheckFreeSpace(minGiB float64) error {
	if minGiB <= 0 {
		return nil
	}
	free, _, err := FreeSpace(w.Root)
	if err != nil {
		log.Warn().Str("op", "workspace/space").Err(err).Msg("could not read disk usage, skipping check")
		return nil
	}
	need := uint64(minGiB * float64(1<<30))
	if free < need {
		return &utils.SetupError{
			Reason: "disk space",
			Err:    fmt.Errorf("%s free in %s, need at least %s", humanize.IBytes(free), w.Root, humanize.IBytes(need)),
		}
	}
	log.Debug().Str("op", "workspace/space").Msgf("%s free in %s", humanize.IBytes(free), w.Root)
	return nil
}
