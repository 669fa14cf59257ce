package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tanq16/castrelay/internal/utils"
)

// Materializer produces the finished local file for one segment.
type Materializer interface {
	Materialize(ctx context.Context, rec utils.Recording, creds utils.Credentials, seg utils.Segment) (string, error)
}

// Supervisor launches one worker per segment, staggered, and closes the handoff
// queue once every launched worker has finished.
type Supervisor struct {
	materializer Materializer
	queue        *Handoff
	inflight     *InFlight
	outcomes     *Outcomes
	stagger      time.Duration
	maxWorkers   int
	logger       zerolog.Logger
}

func (s *Supervisor) Run(ctx context.Context, res utils.Resolution) {
	var wg sync.WaitGroup
	defer s.queue.Close()
	defer wg.Wait()

	var slots chan struct{}
	if s.maxWorkers > 0 {
		slots = make(chan struct{}, s.maxWorkers)
	}

	for i, seg := range res.Segments {
		if i > 0 && !s.wait(ctx) {
			s.cancelRest(res.Segments[i:])
			return
		}
		if slots != nil {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				s.cancelRest(res.Segments[i:])
				return
			}
		}
		s.logger.Info().Str("op", "pipeline/supervisor").Int("segment", seg.Index).Msg("start video")
		s.inflight.Inc()
		s.outcomes.Started(seg.Index)
		wg.Add(1)
		go func(seg utils.Segment) {
			defer wg.Done()
			defer s.inflight.Dec()
			if slots != nil {
				defer func() { <-slots }()
			}
			s.work(ctx, res, seg)
		}(seg)
	}
}

// work runs one segment. The enqueue happens before the in-flight decrement so the
// drain never sees an idle run with a file still on its way.
func (s *Supervisor) work(ctx context.Context, res utils.Resolution, seg utils.Segment) {
	logger := s.logger.With().Str("op", "pipeline/supervisor").Int("segment", seg.Index).Logger()
	path, err := s.materializer.Materialize(ctx, res.Recording, res.Credentials, seg)
	if err != nil {
		state := utils.SegmentFailed
		if errors.Is(err, context.Canceled) {
			state = utils.SegmentCancelled
		}
		s.outcomes.Failed(seg.Index, state, err)
		logger.Error().Err(err).Msg("download exit")
		return
	}
	s.outcomes.Produced(seg.Index, path)
	logger.Info().Msgf("add file to upload queue (%d/%d queued)", s.queue.Len(), s.queue.Cap())
	s.queue.Put(path)
}

func (s *Supervisor) wait(ctx context.Context) bool {
	if s.stagger <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.stagger)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Supervisor) cancelRest(segments []utils.Segment) {
	for _, seg := range segments {
		s.outcomes.Failed(seg.Index, utils.SegmentCancelled, context.Canceled)
	}
	s.logger.Warn().Str("op", "pipeline/supervisor").Msgf("run cancelled, %d segments not started", len(segments))
}
