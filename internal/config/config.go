package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
	"gopkg.in/yaml.v3"
)

type Config struct {
	RecordingURL  string        `yaml:"recording_url"`
	WorkDir       string        `yaml:"work_dir"`
	QueueCapacity int           `yaml:"queue_capacity"`
	MaxWorkers    int           `yaml:"max_workers"`
	LaunchStagger time.Duration `yaml:"launch_stagger"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
	MinFreeGiB    float64       `yaml:"min_free_gib"`
	Proxy         string        `yaml:"proxy"`
	ProxyUsername string        `yaml:"proxy_username"`
	ProxyPassword string        `yaml:"proxy_password"`
	FetchHeaders  []string      `yaml:"fetch_headers"` // "Key: Value", sent on every playlist fetch
	Tools         Tools         `yaml:"tools"`
	Resolver      Resolver      `yaml:"resolver"`
	Storage       Storage       `yaml:"storage"`
}

type Tools struct {
	Minyami  string `yaml:"minyami"`
	Mkvmerge string `yaml:"mkvmerge"`
	FFmpeg   string `yaml:"ffmpeg"`
	Threads  int    `yaml:"threads"`
}

type Resolver struct {
	Kind         string        `yaml:"kind"` // webdriver or static
	WebDriverURL string        `yaml:"webdriver_url"`
	Browser      string        `yaml:"browser"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	Segments     []string      `yaml:"segments"`
	Cookie       string        `yaml:"cookie"`
	UserAgent    string        `yaml:"user_agent"`
}

type Storage struct {
	Kind     string   `yaml:"kind"` // onedrive or s3
	OneDrive OneDrive `yaml:"onedrive"`
	S3       S3       `yaml:"s3"`
}

type OneDrive struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserEmail    string `yaml:"user_email"`
	Folder       string `yaml:"folder"`
	ChunkSize    int64  `yaml:"chunk_size"`
	GraphURL     string `yaml:"graph_url"`
	TokenURL     string `yaml:"token_url"`
}

type S3 struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Profile         string `yaml:"profile"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PartSize        int64  `yaml:"part_size"`
}

// Default mirrors the behavior of a bare run: OneDrive uploads into /downloads,
// WebDriver resolution against a local driver.
func Default() Config {
	return Config{
		WorkDir:       ".",
		QueueCapacity: utils.DefaultQueueCapacity,
		MaxWorkers:    utils.DefaultMaxWorkers,
		LaunchStagger: utils.DefaultLaunchStagger,
		PollInterval:  utils.DefaultPollInterval,
		FetchTimeout:  30 * time.Second,
		ToolTimeout:   3 * time.Hour,
		UploadTimeout: 2 * time.Hour,
		MinFreeGiB:    2,
		Tools: Tools{
			Minyami:  "minyami",
			Mkvmerge: "mkvmerge",
			FFmpeg:   "ffmpeg",
			Threads:  utils.DefaultToolThreads,
		},
		Resolver: Resolver{
			Kind:         "webdriver",
			WebDriverURL: "http://127.0.0.1:9515",
			Browser:      "MicrosoftEdge",
			SettleDelay:  time.Second,
		},
		Storage: Storage{
			Kind: "onedrive",
			OneDrive: OneDrive{
				Folder:    "/downloads",
				ChunkSize: 3 * 320 * 1024,
			},
			S3: S3{
				PartSize: 16 * 1024 * 1024,
			},
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file (if any),
// then .env and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("error reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing config file: %v", err)
		}
		log.Debug().Str("op", "config/load").Msgf("loaded config from %s", path)
	}
	if err := loadDotEnv(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("op", "config/load").Err(err).Msg("could not read .env")
	}
	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}
