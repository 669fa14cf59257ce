package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
)

// outputTail bounds how much tool output is kept on a ToolError.
const outputTail = 4096

// Runner executes external tools with a per-invocation deadline.
type Runner struct {
	Dir     string
	Timeout time.Duration
}

func NewRunner(dir string, timeout time.Duration) *Runner {
	return &Runner{Dir: dir, Timeout: timeout}
}

// Run starts tool with args and waits for it. A non-zero exit, a failure to start,
// or the deadline passing all come back as *utils.ToolError.
func (r *Runner) Run(ctx context.Context, tool string, args ...string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = 5 * time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Debug().Str("op", "toolchain/run").Msgf("running %s %s", tool, strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	if err == nil {
		log.Debug().Str("op", "toolchain/run").Msgf("%s finished in %s", tool, time.Since(start).Round(time.Millisecond))
		return nil
	}

	toolErr := &utils.ToolError{Tool: tool, ExitCode: -1, Output: tail(out.String()), Err: err}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		toolErr.Err = fmt.Errorf("%w: %v", ctx.Err(), err)
	case errors.As(err, &exitErr):
		toolErr.ExitCode = exitErr.ExitCode()
	}
	log.Error().Str("op", "toolchain/run").Int("exit", toolErr.ExitCode).Msgf("%s failed: %s", tool, toolErr.Output)
	return toolErr
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= outputTail {
		return s
	}
	return s[len(s)-outputTail:]
}
