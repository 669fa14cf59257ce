package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type lookupFunc func(key string) (string, bool)

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	// Load never overrides variables already present in the process environment.
	return godotenv.Load(path)
}

func applyEnv(cfg *Config, lookup lookupFunc) {
	setString(lookup, "TWITCASTING_URL", &cfg.RecordingURL)
	setString(lookup, "ONEDRIVE_TENANT_ID", &cfg.Storage.OneDrive.TenantID)
	setString(lookup, "ONEDRIVE_CLIENT_ID", &cfg.Storage.OneDrive.ClientID)
	setString(lookup, "ONEDRIVE_CLIENT_SECRET", &cfg.Storage.OneDrive.ClientSecret)
	setString(lookup, "ONEDRIVE_USER_EMAIL", &cfg.Storage.OneDrive.UserEmail)
	setString(lookup, "CASTRELAY_WORK_DIR", &cfg.WorkDir)
	setString(lookup, "CASTRELAY_STORAGE", &cfg.Storage.Kind)
	setString(lookup, "CASTRELAY_S3_BUCKET", &cfg.Storage.S3.Bucket)
	setString(lookup, "CASTRELAY_S3_PREFIX", &cfg.Storage.S3.Prefix)
	setString(lookup, "CASTRELAY_WEBDRIVER_URL", &cfg.Resolver.WebDriverURL)
	setString(lookup, "CASTRELAY_PROXY", &cfg.Proxy)
	setString(lookup, "CASTRELAY_PROXY_USERNAME", &cfg.ProxyUsername)
	setString(lookup, "CASTRELAY_PROXY_PASSWORD", &cfg.ProxyPassword)
	if v, ok := lookup("CASTRELAY_MAX_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warn().Str("op", "config/env").Err(err).Msgf("ignoring CASTRELAY_MAX_WORKERS=%q", v)
		} else {
			cfg.MaxWorkers = n
		}
	}
}

func setString(lookup lookupFunc, key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}
