package pipeline

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
)

// Outcomes records what happened to every segment of a run.
type Outcomes struct {
	mu     sync.Mutex
	byIdx  map[int]*utils.SegmentOutcome
	byPath map[string]int
}

func NewOutcomes(segments []utils.Segment) *Outcomes {
	o := &Outcomes{
		byIdx:  make(map[int]*utils.SegmentOutcome, len(segments)),
		byPath: make(map[string]int),
	}
	for _, seg := range segments {
		o.byIdx[seg.Index] = &utils.SegmentOutcome{Index: seg.Index, State: utils.SegmentPending}
	}
	return o
}

func (o *Outcomes) update(idx int, fn func(*utils.SegmentOutcome)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out, ok := o.byIdx[idx]
	if !ok {
		out = &utils.SegmentOutcome{Index: idx}
		o.byIdx[idx] = out
	}
	fn(out)
}

func (o *Outcomes) Started(idx int) {
	o.update(idx, func(s *utils.SegmentOutcome) { s.StartTime = time.Now() })
}

func (o *Outcomes) Produced(idx int, path string) {
	o.mu.Lock()
	o.byPath[path] = idx
	o.mu.Unlock()
	o.update(idx, func(s *utils.SegmentOutcome) { s.LocalPath = path })
}

func (o *Outcomes) Failed(idx int, state utils.SegmentState, err error) {
	o.update(idx, func(s *utils.SegmentOutcome) {
		s.State = state
		s.Err = err
		s.FinishTime = time.Now()
	})
}

func (o *Outcomes) Uploaded(path, remoteURL string, size int64) {
	idx, ok := o.indexOf(path)
	if !ok {
		log.Warn().Str("op", "pipeline/outcomes").Str("file", path).Msg("upload for unknown file")
		return
	}
	o.update(idx, func(s *utils.SegmentOutcome) {
		s.State = utils.SegmentUploaded
		s.RemoteURL = remoteURL
		s.Bytes = size
		s.FinishTime = time.Now()
	})
}

func (o *Outcomes) Kept(path string, size int64, err error) {
	idx, ok := o.indexOf(path)
	if !ok {
		log.Warn().Str("op", "pipeline/outcomes").Str("file", path).Err(err).Msg("kept file is not part of this run")
		return
	}
	o.update(idx, func(s *utils.SegmentOutcome) {
		s.State = utils.SegmentKept
		s.LocalPath = path
		s.Bytes = size
		s.Err = err
		s.FinishTime = time.Now()
	})
}

// indexOf maps a produced file back to its segment.
func (o *Outcomes) indexOf(path string) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx, ok := o.byPath[path]
	return idx, ok
}

// Snapshot returns a copy ordered by segment index.
func (o *Outcomes) Snapshot() []utils.SegmentOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]utils.SegmentOutcome, 0, len(o.byIdx))
	for _, s := range o.byIdx {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b utils.SegmentOutcome) int { return a.Index - b.Index })
	return out
}
