package workspace

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
)

// intermediates matches the .ts and .mkv files a segment leaves behind when a
// run is interrupted between tools.
var intermediates = regexp.MustCompile(`^.+_.+_\d+\.(ts|mkv)$`)

// Clean removes leftover intermediates from the work directory. A zero Recording
// matches every recording. Finished files in output/ are only removed with
// includeOutput since they may still be waiting for upload.
func (w *Workspace) Clean(rec utils.Recording, includeOutput bool) ([]string, error) {
	prefix := ""
	if rec.OwnerID != "" {
		prefix = rec.OwnerID + "_" + rec.MovieID + "_"
	}
	entries, err := os.ReadDir(w.Root)
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !intermediates.MatchString(name) || !strings.HasPrefix(name, prefix) {
			continue
		}
		targets = append(targets, filepath.Join(w.Root, name))
	}
	if includeOutput {
		pending, err := w.Pending(rec)
		if err != nil {
			return nil, err
		}
		targets = append(targets, pending...)
	}

	var removed []string
	for _, path := range targets {
		if err := os.Remove(path); err != nil {
			log.Warn().Str("op", "workspace/clean").Err(err).Msgf("could not remove %s", path)
			continue
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// Pending lists finished files in output/ that were never uploaded.
func (w *Workspace) Pending(rec utils.Recording) ([]string, error) {
	pattern := "*.mp4"
	if rec.OwnerID != "" {
		pattern = rec.OwnerID + "_" + rec.MovieID + "_*.mp4"
	}
	return filepath.Glob(filepath.Join(w.OutputDir, pattern))
}
