package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/castrelay/internal/config"
	"github.com/tanq16/castrelay/internal/materializer"
	"github.com/tanq16/castrelay/internal/output"
	"github.com/tanq16/castrelay/internal/pipeline"
	"github.com/tanq16/castrelay/internal/resolver"
	"github.com/tanq16/castrelay/internal/storage"
	"github.com/tanq16/castrelay/internal/toolchain"
	"github.com/tanq16/castrelay/internal/utils"
	"github.com/tanq16/castrelay/internal/workspace"
)

func newRunCmd() *cobra.Command {
	var (
		maxWorkers   int
		stagger      time.Duration
		storageKind  string
		resolverKind string
		segments     []string
		cookie       string
		userAgent    string
		headers      []string
	)

	cmd := &cobra.Command{
		Use:   "run [RECORDING_URL]",
		Short: "Download every segment of a recording and upload the finished files",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				exitSetup(err)
			}
			if len(args) > 0 {
				cfg.RecordingURL = args[0]
			}
			flags := cmd.Flags()
			if flags.Changed("max-workers") {
				cfg.MaxWorkers = maxWorkers
			}
			if flags.Changed("stagger") {
				cfg.LaunchStagger = stagger
			}
			if flags.Changed("storage") {
				cfg.Storage.Kind = storageKind
			}
			if flags.Changed("segment") {
				cfg.Resolver.Kind = "static"
				cfg.Resolver.Segments = segments
			}
			if flags.Changed("resolver") {
				cfg.Resolver.Kind = resolverKind
			}
			if cookie != "" {
				cfg.Resolver.Cookie = cookie
			}
			if userAgent != "" {
				cfg.Resolver.UserAgent = userAgent
			}
			cfg.FetchHeaders = append(cfg.FetchHeaders, headers...)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := runPipeline(ctx, cfg)
			if err != nil {
				exitSetup(err)
			}
			output.PrintSummary(summary)
		},
	}

	cmd.Flags().IntVarP(&maxWorkers, "max-workers", "w", utils.DefaultMaxWorkers, "Maximum segments processed at once (0 for no limit)")
	cmd.Flags().DurationVar(&stagger, "stagger", utils.DefaultLaunchStagger, "Delay between segment launches")
	cmd.Flags().StringVar(&storageKind, "storage", "", "Remote storage backend (onedrive or s3)")
	cmd.Flags().StringVar(&resolverKind, "resolver", "", "Segment resolver (webdriver or static)")
	cmd.Flags().StringArrayVar(&segments, "segment", []string{}, "Segment playlist URL for the static resolver; can be specified multiple times")
	cmd.Flags().StringVar(&cookie, "cookie", "", "Session cookie for the static resolver")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "User agent for the static resolver")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Extra playlist fetch header (\"Key: Value\"); can be specified multiple times")
	return cmd
}

func runPipeline(ctx context.Context, cfg config.Config) (*pipeline.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rec, err := utils.ParseRecordingURL(cfg.RecordingURL)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.Open(cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	defer ws.Close()
	if err := ws.CheckFreeSpace(cfg.MinFreeGiB); err != nil {
		return nil, err
	}

	statuses := toolchain.Check(toolchain.Requirements(cfg.Tools.Minyami, cfg.Tools.Mkvmerge, cfg.Tools.FFmpeg))
	if missing := toolchain.Missing(statuses); len(missing) > 0 {
		return nil, &utils.SetupError{Reason: "external tools", Err: errors.New("not found: " + strings.Join(missing, ", "))}
	}

	store, err := buildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := utils.NewRelayHTTPClient(fetchClientConfig(cfg))
	mat := materializer.New(materializer.Tools{
		Minyami:  cfg.Tools.Minyami,
		Mkvmerge: cfg.Tools.Mkvmerge,
		FFmpeg:   cfg.Tools.FFmpeg,
		Threads:  cfg.Tools.Threads,
	}, ws, toolchain.NewRunner(ws.Root, cfg.ToolTimeout), client, cfg.FetchTimeout)

	ctrl := pipeline.NewController(buildResolver(cfg), mat, store, pipeline.Options{
		QueueCapacity: cfg.QueueCapacity,
		MaxWorkers:    cfg.MaxWorkers,
		LaunchStagger: cfg.LaunchStagger,
		PollInterval:  cfg.PollInterval,
		UploadTimeout: cfg.UploadTimeout,
	})
	return ctrl.Run(ctx, rec)
}

// fetchClientConfig builds the client for segment playlist fetches. Session headers
// are layered on top per request.
func fetchClientConfig(cfg config.Config) utils.HTTPClientConfig {
	return utils.HTTPClientConfig{
		Timeout:       cfg.FetchTimeout,
		ProxyURL:      cfg.Proxy,
		ProxyUsername: cfg.ProxyUsername,
		ProxyPassword: cfg.ProxyPassword,
		Headers:       utils.ParseHeaderArgs(cfg.FetchHeaders),
	}
}

func buildResolver(cfg config.Config) resolver.Resolver {
	if cfg.Resolver.Kind == "static" {
		return &resolver.Static{
			Segments:  cfg.Resolver.Segments,
			Cookie:    cfg.Resolver.Cookie,
			UserAgent: cfg.Resolver.UserAgent,
		}
	}
	return resolver.NewWebDriver(resolver.WebDriverConfig{
		URL:         cfg.Resolver.WebDriverURL,
		Browser:     cfg.Resolver.Browser,
		SettleDelay: cfg.Resolver.SettleDelay,
		Timeout:     cfg.FetchTimeout,
	})
}

func buildStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	switch cfg.Storage.Kind {
	case "s3":
		s3cfg := cfg.Storage.S3
		store, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Profile:         s3cfg.Profile,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			PartSize:        s3cfg.PartSize,
		})
		if err != nil {
			return nil, &utils.SetupError{Reason: "s3 storage", Err: err}
		}
		return store, nil
	default:
		od := cfg.Storage.OneDrive
		store, err := storage.NewOneDrive(storage.OneDriveConfig{
			TenantID:     od.TenantID,
			ClientID:     od.ClientID,
			ClientSecret: od.ClientSecret,
			UserEmail:    od.UserEmail,
			Folder:       od.Folder,
			ChunkSize:    od.ChunkSize,
			GraphURL:     od.GraphURL,
			TokenURL:     od.TokenURL,
		})
		if err != nil {
			return nil, &utils.SetupError{Reason: "onedrive storage", Err: err}
		}
		return store, nil
	}
}

func exitSetup(err error) {
	log.Error().Str("op", "cmd/run").Err(err).Msg("setup failed")
	output.PrintError(err.Error())
	os.Exit(1)
}
