package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/castrelay/internal/config"
	"github.com/tanq16/castrelay/internal/utils"
)

var (
	configPath string
	workDir    string
	debug      bool
)

var CastrelayVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "castrelay",
	Short:   "Castrelay downloads a TwitCasting recording segment by segment and relays each file to remote storage",
	Version: CastrelayVersion,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&workDir, "work-dir", "d", "", "Work directory for intermediates (finished files go to <work-dir>/output)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// loadConfig applies the persistent flags on top of file and environment settings.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, &utils.SetupError{Reason: "config", Err: err}
	}
	if workDir != "" {
		cfg.WorkDir = workDir
	}
	log.Debug().Str("op", "cmd/root").Msgf("work directory %s, storage %s, resolver %s", cfg.WorkDir, cfg.Storage.Kind, cfg.Resolver.Kind)
	return cfg, nil
}
