package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/castrelay/internal/output"
	"github.com/tanq16/castrelay/internal/utils"
	"github.com/tanq16/castrelay/internal/workspace"
)

func newCleanCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clean [RECORDING_URL]",
		Short: "Remove leftover intermediates from the work directory",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				exitSetup(err)
			}
			var rec utils.Recording
			if len(args) > 0 {
				if rec, err = utils.ParseRecordingURL(args[0]); err != nil {
					exitSetup(err)
				}
			}
			ws, err := workspace.Open(cfg.WorkDir)
			if err != nil {
				exitSetup(err)
			}
			defer ws.Close()

			removed, err := ws.Clean(rec, all)
			if err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning up: %v", err))
				return
			}
			for _, path := range removed {
				output.PrintInfo(fmt.Sprintf("%s %s", output.StyleSymbols["arrow"], path))
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d files", len(removed)))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Also remove finished files in output/ that were never uploaded")
	return cmd
}
