package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/cobra"
	"github.com/tanq16/castrelay/internal/output"
	"github.com/tanq16/castrelay/internal/toolchain"
	"github.com/tanq16/castrelay/internal/workspace"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check external tools, free disk space and worker settings",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				exitSetup(err)
			}
			statuses := toolchain.Check(toolchain.Requirements(cfg.Tools.Minyami, cfg.Tools.Mkvmerge, cfg.Tools.FFmpeg))
			fmt.Println(output.FormatToolStatus(statuses))

			free, total, err := workspace.FreeSpace(cfg.WorkDir)
			if err != nil {
				log.Warn().Str("op", "cmd/check").Err(err).Msg("could not read disk usage")
			} else {
				line := fmt.Sprintf("%s free of %s in %s", humanize.IBytes(free), humanize.IBytes(total), cfg.WorkDir)
				if float64(free) < cfg.MinFreeGiB*float64(1<<30) {
					output.PrintWarning(line)
				} else {
					output.PrintInfo(line)
				}
			}

			if cores, err := cpu.Counts(true); err == nil {
				output.PrintInfo(fmt.Sprintf("%d logical CPUs, max_workers %d", cores, cfg.MaxWorkers))
			}
			if err := cfg.Validate(); err != nil {
				output.PrintWarning(err.Error())
			}

			if missing := toolchain.Missing(statuses); len(missing) > 0 {
				output.PrintError(fmt.Sprintf("%d tools missing", len(missing)))
				os.Exit(1)
			}
			output.PrintSuccess("All tools available")
		},
	}
}
