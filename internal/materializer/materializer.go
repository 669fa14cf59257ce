package materializer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
	"github.com/tanq16/castrelay/internal/workspace"
)

// Runner executes one external tool invocation.
type Runner interface {
	Run(ctx context.Context, tool string, args ...string) error
}

type Tools struct {
	Minyami  string
	Mkvmerge string
	FFmpeg   string
	Threads  int
}

// Materializer turns one segment URL into a finished .mp4 under output/.
type Materializer struct {
	tools        Tools
	ws           *workspace.Workspace
	runner       Runner
	client       *utils.RelayHTTPClient
	fetchTimeout time.Duration
}

func New(tools Tools, ws *workspace.Workspace, runner Runner, client *utils.RelayHTTPClient, fetchTimeout time.Duration) *Materializer {
	if tools.Threads <= 0 {
		tools.Threads = utils.DefaultToolThreads
	}
	return &Materializer{tools: tools, ws: ws, runner: runner, client: client, fetchTimeout: fetchTimeout}
}

// Materialize fetches the segment playlist, downloads the stream, remuxes it and
// converts it to mp4. Intermediates of a failed step are left on disk.
func (m *Materializer) Materialize(ctx context.Context, rec utils.Recording, creds utils.Credentials, seg utils.Segment) (string, error) {
	logger := log.With().Str("op", "materializer/materialize").Int("segment", seg.Index).Logger()
	logger.Info().Msgf("start download %s", seg.URL)

	mediaURL, err := m.resolveStream(ctx, creds, seg.URL)
	if err != nil {
		logger.Error().Err(err).Msg("get real video fail")
		return "", err
	}
	logger.Debug().Msgf("media url %s", mediaURL)

	tsPath := m.ws.TSPath(rec, seg.Index)
	mkvPath := m.ws.MKVPath(rec, seg.Index)
	mp4Path := m.ws.MP4Path(rec, seg.Index)

	logger.Info().Msg("start download video stream")
	if err := m.runner.Run(ctx, m.tools.Minyami,
		"-d", mediaURL,
		"--output", tsPath,
		"--headers", utils.FormatHeader("Referer", utils.SourceReferer),
		"--headers", utils.FormatHeader("User-Agent", creds.UserAgent),
		"--threads", strconv.Itoa(m.tools.Threads),
	); err != nil {
		return "", err
	}
	logger.Info().Msg("download success")

	logger.Info().Msg("start fix video stream")
	if err := m.runner.Run(ctx, m.tools.Mkvmerge,
		"--output", mkvPath,
		"--language", "0:und",
		"--fix-bitstream-timing-information", "0:1",
		"--language", "1:und",
		tsPath,
		"--track-order", "0:0,0:1",
	); err != nil {
		return "", err
	}
	logger.Info().Msg("fix success")
	removeIntermediate(tsPath)

	logger.Info().Msg("format video to mp4")
	if err := m.runner.Run(ctx, m.tools.FFmpeg,
		"-y",
		"-i", mkvPath,
		"-c:v", "copy",
		"-c:a", "copy",
		mp4Path,
	); err != nil {
		return "", err
	}
	logger.Info().Msg("format success")
	removeIntermediate(mkvPath)

	if _, err := os.Stat(mp4Path); err != nil {
		return "", &utils.ToolError{Tool: m.tools.FFmpeg, Err: fmt.Errorf("output missing: %v", err)}
	}
	logger.Info().Msgf("download finished %s", mp4Path)
	return mp4Path, nil
}

func removeIntermediate(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("op", "materializer/materialize").Err(err).Msgf("could not remove %s", path)
	}
}
