package utils

import (
	"maps"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

type HTTPClientConfig struct {
	Timeout       time.Duration
	KATimeout     time.Duration
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	UserAgent     string
	Headers       map[string]string
}

type RelayHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewRelayHTTPClient(cfg HTTPClientConfig) *RelayHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	headers := make(map[string]string, len(cfg.Headers))
	maps.Copy(headers, cfg.Headers)
	cfg.Headers = headers
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: cfg.KATimeout,
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) { sockErr = tuneSocket(fd) }); err != nil {
				return err
			}
			if sockErr != nil {
				log.Debug().Str("op", "utils/http-client").Err(sockErr).Msg("socket tuning skipped")
			}
			return nil
		},
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		DisableCompression:  true,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &RelayHTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config: cfg,
	}
}

// WithHeaders returns a client sharing the same transport with extra headers layered on top.
func (c *RelayHTTPClient) WithHeaders(headers map[string]string) *RelayHTTPClient {
	cfg := c.config
	cfg.Headers = make(map[string]string, len(c.config.Headers)+len(headers))
	maps.Copy(cfg.Headers, c.config.Headers)
	maps.Copy(cfg.Headers, headers)
	return &RelayHTTPClient{client: c.client, config: cfg}
}

// HTTPClient exposes the underlying client for libraries that want a plain *http.Client.
func (c *RelayHTTPClient) HTTPClient() *http.Client {
	return c.client
}

func (c *RelayHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", "castrelay")
	}
	for k, v := range c.config.Headers {
		if v == "" {
			continue
		}
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}
