package storage

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
)

// ProgressReporter turns byte offsets into log lines. The last chunk is reported as
// "file uploaded" instead of a percentage.
type ProgressReporter struct {
	path    string
	total   int64
	mu      sync.Mutex
	lastPct int
	done    bool
}

func NewProgressReporter(path string, total int64) *ProgressReporter {
	return &ProgressReporter{path: path, total: total, lastPct: -1}
}

func ProgressMessage(offset, total int64) string {
	if total-offset <= utils.FinalChunkThreshold {
		return "file uploaded"
	}
	return fmt.Sprintf("file uploading %.2f%%", float64(offset)*100/float64(total))
}

func (p *ProgressReporter) Report(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	msg := ProgressMessage(offset, p.total)
	if p.total-offset <= utils.FinalChunkThreshold {
		p.done = true
	} else {
		pct := int(offset * 100 / p.total)
		if pct == p.lastPct {
			return
		}
		p.lastPct = pct
	}
	log.Info().Str("op", "storage/progress").Str("file", p.path).
		Str("sent", humanize.IBytes(uint64(offset))).Msg(msg)
}

// Func adapts the reporter to a ProgressFunc.
func (p *ProgressReporter) Func() ProgressFunc {
	return p.Report
}
