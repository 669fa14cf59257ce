package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tanq16/castrelay/internal/pipeline"
	"github.com/tanq16/castrelay/internal/toolchain"
	"github.com/tanq16/castrelay/internal/utils"
)

func stateCell(state utils.SegmentState) string {
	switch state {
	case utils.SegmentUploaded:
		return FSuccess(StyleSymbols["pass"] + " " + string(state))
	case utils.SegmentKept:
		return FWarning(StyleSymbols["warning"] + " " + string(state))
	case utils.SegmentFailed:
		return FError(StyleSymbols["fail"] + " " + string(state))
	case utils.SegmentCancelled:
		return FDebug(StyleSymbols["bullet"] + " " + string(state))
	default:
		return FPending(StyleSymbols["pending"] + " " + string(state))
	}
}

// FormatSummary renders one row per segment followed by per-state totals.
func FormatSummary(s *pipeline.Summary, width int) string {
	detailWidth := max(20, width-60)
	t := NewTable([]string{"Segment", "State", "File", "Size", "Detail"})
	for _, seg := range s.Segments {
		file, size, detail := "-", "-", "-"
		if seg.LocalPath != "" {
			file = filepath.Base(seg.LocalPath)
		}
		if seg.Bytes > 0 {
			size = humanize.IBytes(uint64(seg.Bytes))
		}
		switch {
		case seg.Err != nil:
			detail = seg.Err.Error()
		case seg.RemoteURL != "":
			detail = seg.RemoteURL
		}
		t.AddRow(strconv.Itoa(seg.Index), stateCell(seg.State), file, size, truncate(detail, detailWidth))
	}

	var b strings.Builder
	b.WriteString(FHeader(fmt.Sprintf("%s_%s run %s", s.Recording.OwnerID, s.Recording.MovieID, s.RunID)))
	b.WriteString("\n")
	b.WriteString(t.FormatTable())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d uploaded %s %d kept %s %d failed %s %d cancelled in %s",
		s.Count(utils.SegmentUploaded), StyleSymbols["bullet"],
		s.Count(utils.SegmentKept), StyleSymbols["bullet"],
		s.Count(utils.SegmentFailed), StyleSymbols["bullet"],
		s.Count(utils.SegmentCancelled),
		s.Finished.Sub(s.Started).Round(time.Second))
	return b.String()
}

func PrintSummary(s *pipeline.Summary) {
	fmt.Println(FormatSummary(s, getTerminalWidth()))
}

// FormatToolStatus renders the result of a tool availability check.
func FormatToolStatus(statuses []toolchain.Status) string {
	t := NewTable([]string{"Tool", "Status", "Path", "Purpose"})
	for _, s := range statuses {
		state := FSuccess(StyleSymbols["pass"] + " found")
		path := s.Path
		if !s.Available {
			state = FError(StyleSymbols["fail"] + " missing")
			path = s.Detail
		}
		t.AddRow(s.Name, state, path, s.Description)
	}
	return t.FormatTable()
}
