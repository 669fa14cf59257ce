package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/tanq16/castrelay/internal/storage"
	"github.com/tanq16/castrelay/internal/utils"
)

// Drain uploads finished files one at a time in the order workers handed them off.
// It returns once the queue is closed and empty.
type Drain struct {
	store         storage.Storage
	queue         *Handoff
	inflight      *InFlight
	outcomes      *Outcomes
	poll          time.Duration
	uploadTimeout time.Duration
	logger        zerolog.Logger
}

func (d *Drain) Run(ctx context.Context) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		select {
		case path, ok := <-d.queue.C():
			if !ok {
				d.logger.Info().Str("op", "pipeline/drain").Msg("all files have uploaded")
				return
			}
			d.upload(ctx, path)
		case <-ticker.C:
			n, started := d.inflight.Load()
			ev := d.logger.Info().Str("op", "pipeline/drain").Int64("in_flight", n)
			if !started {
				ev = ev.Str("state", "uninitialized")
			}
			ev.Msg("wait for upload file")
		}
	}
}

// upload sends one file and removes it only after the backend confirmed it. The
// length comes from stat; backends stream the file instead of holding it in memory.
func (d *Drain) upload(ctx context.Context, path string) {
	logger := d.logger.With().Str("op", "pipeline/drain").Str("file", path).Logger()
	logger.Info().Msg("get upload file")

	info, err := os.Stat(path)
	if err != nil {
		d.keep(logger, path, 0, &utils.UploadError{Path: path, Err: err})
		return
	}
	size := info.Size()
	logger.Info().Msgf("file size %s", humanize.IBytes(uint64(size)))
	logger.Info().Msgf("start upload to %s", d.store.Name())

	uctx := ctx
	if d.uploadTimeout > 0 {
		var cancel context.CancelFunc
		uctx, cancel = context.WithTimeout(ctx, d.uploadTimeout)
		defer cancel()
	}
	reporter := storage.NewProgressReporter(path, size)
	receipt, err := d.store.Upload(uctx, path, size, reporter.Func())
	if err != nil {
		d.keep(logger, path, size, &utils.UploadError{Path: path, Err: err})
		return
	}
	if !receipt.Confirmed {
		d.keep(logger, path, size, &utils.UploadError{
			Path: path,
			Err:  fmt.Errorf("%w: remote reported %d of %d bytes", utils.ErrUnconfirmedUpload, receipt.Bytes, size),
		})
		return
	}

	logger.Info().Msgf("upload success %s", receipt.RemoteURL)
	d.outcomes.Uploaded(path, receipt.RemoteURL, size)
	if err := os.Remove(path); err != nil {
		logger.Warn().Err(err).Msg("uploaded file could not be removed")
	}
}

func (d *Drain) keep(logger zerolog.Logger, path string, size int64, err error) {
	logger.Error().Err(err).Msg("upload failed, file kept for manual recovery")
	d.outcomes.Kept(path, size, err)
}
