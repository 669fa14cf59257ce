package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
)

const segmentScript = `
const video = document.querySelector("video");
if (!video || !video.dataset.moviePlaylist) return [];
const urls = [];
for (const entry of JSON.parse(video.dataset.moviePlaylist)[2] || []) {
	if (entry && entry.source && entry.source.url) urls.push(entry.source.url);
}
return urls;`

type WebDriverConfig struct {
	URL         string
	Browser     string
	Args        []string
	SettleDelay time.Duration
	Timeout     time.Duration
}

// WebDriver drives a real browser through a W3C WebDriver endpoint so the page's
// own scripts set the session cookie.
type WebDriver struct {
	cfg    WebDriverConfig
	client *http.Client
}

type wdResponse struct {
	Value json.RawMessage `json:"value"`
}

type wdError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewWebDriver(cfg WebDriverConfig) *WebDriver {
	if cfg.Browser == "" {
		cfg.Browser = "MicrosoftEdge"
	}
	if cfg.Args == nil {
		cfg.Args = []string{"--no-sandbox", "--disable-dev-shm-usage"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &WebDriver{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (w *WebDriver) Resolve(ctx context.Context, rec utils.Recording) (utils.Resolution, error) {
	res, err := w.resolve(ctx, rec)
	if err != nil {
		var setupErr *utils.SetupError
		if errors.As(err, &setupErr) {
			return utils.Resolution{}, err
		}
		return utils.Resolution{}, &utils.SetupError{Reason: "webdriver", Err: err}
	}
	return res, nil
}

func (w *WebDriver) resolve(ctx context.Context, rec utils.Recording) (utils.Resolution, error) {
	log.Info().Str("op", "resolver/webdriver").Msgf("start webdriver session at %s", w.cfg.URL)
	sessionID, err := w.newSession(ctx)
	if err != nil {
		return utils.Resolution{}, err
	}
	defer w.deleteSession(sessionID)

	base := "/session/" + sessionID
	log.Info().Str("op", "resolver/webdriver").Msgf("open recording page %s", rec.URL)
	if err := w.call(ctx, http.MethodPost, base+"/url", map[string]string{"url": rec.URL}, nil); err != nil {
		return utils.Resolution{}, fmt.Errorf("error opening page: %v", err)
	}
	if err := w.settle(ctx); err != nil {
		return utils.Resolution{}, err
	}
	if err := w.call(ctx, http.MethodPost, base+"/refresh", struct{}{}, nil); err != nil {
		return utils.Resolution{}, fmt.Errorf("error refreshing page: %v", err)
	}
	if err := w.settle(ctx); err != nil {
		return utils.Resolution{}, err
	}

	var creds utils.Credentials
	if err := w.execute(ctx, sessionID, "return navigator.userAgent", &creds.UserAgent); err != nil {
		return utils.Resolution{}, fmt.Errorf("error reading user agent: %v", err)
	}
	if creds.UserAgent == "" {
		return utils.Resolution{}, errors.New("browser reported an empty user agent")
	}
	log.Debug().Str("op", "resolver/webdriver").Msgf("user agent %s", creds.UserAgent)
	if err := w.execute(ctx, sessionID, "return document.cookie", &creds.Cookie); err != nil {
		return utils.Resolution{}, fmt.Errorf("error reading cookie: %v", err)
	}
	log.Debug().Str("op", "resolver/webdriver").Msgf("cookie %s", creds.Cookie)

	var urls []string
	if err := w.execute(ctx, sessionID, segmentScript, &urls); err != nil {
		return utils.Resolution{}, fmt.Errorf("error reading playlist: %v", err)
	}
	segments := indexSegments(urls)
	if len(segments) == 0 {
		return utils.Resolution{}, &utils.SetupError{Reason: rec.URL, Err: utils.ErrNoSegments}
	}
	for _, seg := range segments {
		log.Info().Str("op", "resolver/webdriver").Int("segment", seg.Index).Msgf("got media %s", seg.URL)
	}
	log.Info().Str("op", "resolver/webdriver").Msgf("found %d segments", len(segments))
	return utils.Resolution{Recording: rec, Credentials: creds, Segments: segments}, nil
}

func (w *WebDriver) newSession(ctx context.Context) (string, error) {
	match := map[string]any{"browserName": w.cfg.Browser}
	match[browserOptionsKey(w.cfg.Browser)] = map[string]any{"args": w.cfg.Args}
	caps := map[string]any{
		"capabilities": map[string]any{"alwaysMatch": match},
	}
	var session struct {
		SessionID string `json:"sessionId"`
	}
	if err := w.call(ctx, http.MethodPost, "/session", caps, &session); err != nil {
		return "", fmt.Errorf("error creating session: %v", err)
	}
	if session.SessionID == "" {
		return "", errors.New("webdriver returned no session id")
	}
	return session.SessionID, nil
}

func (w *WebDriver) deleteSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.call(ctx, http.MethodDelete, "/session/"+sessionID, nil, nil); err != nil {
		log.Warn().Str("op", "resolver/webdriver").Err(err).Msg("could not close webdriver session")
		return
	}
	log.Debug().Str("op", "resolver/webdriver").Msg("closed webdriver session")
}

func (w *WebDriver) execute(ctx context.Context, sessionID, script string, out any) error {
	body := map[string]any{"script": script, "args": []any{}}
	return w.call(ctx, http.MethodPost, "/session/"+sessionID+"/execute/sync", body, out)
}

func (w *WebDriver) settle(ctx context.Context) error {
	if w.cfg.SettleDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.cfg.SettleDelay):
		return nil
	}
}

// call sends one WebDriver command and decodes the "value" member into out.
func (w *WebDriver) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, w.cfg.URL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope wdResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error decoding response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		var wdErr wdError
		if json.Unmarshal(envelope.Value, &wdErr) == nil && wdErr.Error != "" {
			return fmt.Errorf("%s: %s", wdErr.Error, wdErr.Message)
		}
		return fmt.Errorf("http error %d", resp.StatusCode)
	}
	if out == nil || len(envelope.Value) == 0 || string(envelope.Value) == "null" {
		return nil
	}
	return json.Unmarshal(envelope.Value, out)
}

func browserOptionsKey(browser string) string {
	switch strings.ToLower(browser) {
	case "chrome", "chromium":
		return "goog:chromeOptions"
	case "firefox":
		return "moz:firefoxOptions"
	default:
		return "ms:edgeOptions"
	}
}
