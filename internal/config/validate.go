package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tanq16/castrelay/internal/utils"
)

// Validate reports every problem at once as a SetupError.
func (c Config) Validate() error {
	var problems []error
	if strings.TrimSpace(c.RecordingURL) == "" {
		problems = append(problems, utils.ErrNoRecordingURL)
	}
	if c.QueueCapacity <= 0 {
		problems = append(problems, fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity))
	}
	if c.MaxWorkers < 0 {
		problems = append(problems, fmt.Errorf("max_workers must be >= 0, got %d", c.MaxWorkers))
	}
	if c.LaunchStagger < 0 || c.PollInterval <= 0 {
		problems = append(problems, errors.New("launch_stagger must be >= 0 and poll_interval > 0"))
	}
	if c.WorkDir == "" {
		problems = append(problems, errors.New("work_dir is empty"))
	}
	for _, h := range c.FetchHeaders {
		if len(utils.ParseHeaderArgs([]string{h})) == 0 {
			problems = append(problems, fmt.Errorf("fetch_headers entry %q is not \"Key: Value\"", h))
		}
	}
	if c.ProxyUsername != "" && c.Proxy == "" {
		problems = append(problems, errors.New("proxy_username is set without proxy"))
	}

	switch c.Resolver.Kind {
	case "webdriver":
		if c.Resolver.WebDriverURL == "" {
			problems = append(problems, errors.New("resolver.webdriver_url is empty"))
		}
	case "static":
		if len(c.Resolver.Segments) == 0 {
			problems = append(problems, errors.New("resolver.segments is empty for static resolver"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown resolver kind %q", c.Resolver.Kind))
	}

	switch c.Storage.Kind {
	case "onedrive":
		od := c.Storage.OneDrive
		var missing []string
		for name, v := range map[string]string{
			"tenant_id":     od.TenantID,
			"client_id":     od.ClientID,
			"client_secret": od.ClientSecret,
			"user_email":    od.UserEmail,
		} {
			if v == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			problems = append(problems, fmt.Errorf("onedrive credentials missing: %s", strings.Join(missing, ", ")))
		}
		if od.ChunkSize <= 0 || od.ChunkSize%(320*1024) != 0 {
			problems = append(problems, fmt.Errorf("onedrive chunk_size must be a positive multiple of 320 KiB, got %d", od.ChunkSize))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			problems = append(problems, errors.New("s3 bucket is empty"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown storage kind %q", c.Storage.Kind))
	}

	if len(problems) == 0 {
		return nil
	}
	return &utils.SetupError{Reason: "invalid configuration", Err: errors.Join(problems...)}
}
