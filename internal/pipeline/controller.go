package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/resolver"
	"github.com/tanq16/castrelay/internal/storage"
	"github.com/tanq16/castrelay/internal/utils"
)

type Options struct {
	QueueCapacity int
	MaxWorkers    int
	LaunchStagger time.Duration
	PollInterval  time.Duration
	UploadTimeout time.Duration
}

// Controller wires resolver, workers and the upload drain for one recording.
type Controller struct {
	resolver     resolver.Resolver
	materializer Materializer
	store        storage.Storage
	opts         Options
}

type Summary struct {
	RunID     string
	Recording utils.Recording
	Segments  []utils.SegmentOutcome
	Started   time.Time
	Finished  time.Time
}

func NewController(r resolver.Resolver, m Materializer, s storage.Storage, opts Options) *Controller {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = utils.DefaultQueueCapacity
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = utils.DefaultPollInterval
	}
	if opts.MaxWorkers < 0 {
		opts.MaxWorkers = 0
	}
	return &Controller{resolver: r, materializer: m, store: s, opts: opts}
}

// Run resolves the recording, then runs workers and the drain until every
// launched worker finished and every handed-off file was processed. Only setup
// failures are returned; per-segment failures end up in the summary.
func (c *Controller) Run(ctx context.Context, rec utils.Recording) (*Summary, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run", runID).Logger()
	summary := &Summary{RunID: runID, Recording: rec, Started: time.Now()}

	logger.Info().Str("op", "pipeline/controller").Msgf("resolving %s", rec.URL)
	res, err := c.resolver.Resolve(ctx, rec)
	if err != nil {
		return nil, err
	}
	if len(res.Segments) == 0 {
		return nil, &utils.SetupError{Reason: rec.URL, Err: utils.ErrNoSegments}
	}
	res.Recording = rec
	logger.Info().Str("op", "pipeline/controller").Msgf("found %d videos", len(res.Segments))

	queue := NewHandoff(c.opts.QueueCapacity)
	inflight := &InFlight{}
	outcomes := NewOutcomes(res.Segments)

	sup := &Supervisor{
		materializer: c.materializer,
		queue:        queue,
		inflight:     inflight,
		outcomes:     outcomes,
		stagger:      c.opts.LaunchStagger,
		maxWorkers:   c.opts.MaxWorkers,
		logger:       logger,
	}
	drain := &Drain{
		store:         c.store,
		queue:         queue,
		inflight:      inflight,
		outcomes:      outcomes,
		poll:          c.opts.PollInterval,
		uploadTimeout: c.opts.UploadTimeout,
		logger:        logger,
	}

	go sup.Run(ctx, res)
	drain.Run(ctx)

	summary.Segments = outcomes.Snapshot()
	summary.Finished = time.Now()
	return summary, nil
}

// Count returns how many segments ended in state.
func (s *Summary) Count(state utils.SegmentState) int {
	n := 0
	for _, seg := range s.Segments {
		if seg.State == state {
			n++
		}
	}
	return n
}
