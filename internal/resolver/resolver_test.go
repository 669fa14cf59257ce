package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tanq16/castrelay/internal/utils"
)

type fakeDriver struct {
	mu       sync.Mutex
	playlist []string
	failNew  bool
	visited  []string
	deleted  bool
	browser  string
}

func (f *fakeDriver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	reply := func(status int, v any) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"value": v})
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/session":
		if f.failNew {
			reply(http.StatusInternalServerError, map[string]string{"error": "session not created", "message": "no browser"})
			return
		}
		match := body["capabilities"].(map[string]any)["alwaysMatch"].(map[string]any)
		f.browser, _ = match["browserName"].(string)
		if _, ok := match["ms:edgeOptions"]; !ok {
			reply(http.StatusBadRequest, map[string]string{"error": "invalid argument", "message": "missing edge options"})
			return
		}
		reply(http.StatusOK, map[string]any{"sessionId": "s1", "capabilities": map[string]any{}})
	case r.URL.Path == "/session/s1/url":
		f.visited = append(f.visited, body["url"].(string))
		reply(http.StatusOK, nil)
	case r.URL.Path == "/session/s1/refresh":
		f.visited = append(f.visited, "refresh")
		reply(http.StatusOK, nil)
	case r.URL.Path == "/session/s1/execute/sync":
		script := body["script"].(string)
		switch {
		case script == "return navigator.userAgent":
			reply(http.StatusOK, "ua/1")
		case script == "return document.cookie":
			reply(http.StatusOK, "sid=abc")
		case strings.Contains(script, "moviePlaylist"):
			reply(http.StatusOK, f.playlist)
		default:
			reply(http.StatusBadRequest, map[string]string{"error": "javascript error", "message": "unknown script"})
		}
	case r.Method == http.MethodDelete && r.URL.Path == "/session/s1":
		f.deleted = true
		reply(http.StatusOK, nil)
	default:
		reply(http.StatusNotFound, map[string]string{"error": "unknown command", "message": r.URL.Path})
	}
}

func newDriver(t *testing.T, f *fakeDriver) *WebDriver {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewWebDriver(WebDriverConfig{URL: srv.URL + "/"})
}

var testRecording = utils.Recording{URL: "https://twitcasting.tv/someone/movie/1", OwnerID: "someone", MovieID: "1"}

func TestWebDriverResolve(t *testing.T) {
	f := &fakeDriver{playlist: []string{"https://a.example/1.m3u8", "", "https://a.example/2.m3u8"}}
	res, err := newDriver(t, f).Resolve(context.Background(), testRecording)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Credentials.UserAgent != "ua/1" || res.Credentials.Cookie != "sid=abc" {
		t.Fatalf("unexpected credentials %+v", res.Credentials)
	}
	if len(res.Segments) != 2 || res.Segments[1].Index != 2 || res.Segments[1].URL != "https://a.example/2.m3u8" {
		t.Fatalf("unexpected segments %+v", res.Segments)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != "MicrosoftEdge" {
		t.Fatalf("unexpected browser %q", f.browser)
	}
	if strings.Join(f.visited, ",") != testRecording.URL+",refresh" {
		t.Fatalf("unexpected navigation %v", f.visited)
	}
	if !f.deleted {
		t.Fatal("session was not deleted")
	}
}

func TestWebDriverNoSegments(t *testing.T) {
	f := &fakeDriver{}
	_, err := newDriver(t, f).Resolve(context.Background(), testRecording)
	var setupErr *utils.SetupError
	if !errors.As(err, &setupErr) || !errors.Is(err, utils.ErrNoSegments) {
		t.Fatalf("expected no segments setup error, got %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.deleted {
		t.Fatal("session must be deleted on failure")
	}
}

func TestWebDriverSessionError(t *testing.T) {
	f := &fakeDriver{failNew: true}
	_, err := newDriver(t, f).Resolve(context.Background(), testRecording)
	var setupErr *utils.SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if !strings.Contains(err.Error(), "no browser") {
		t.Fatalf("driver message lost: %v", err)
	}
}

func TestStaticResolve(t *testing.T) {
	s := &Static{Segments: []string{"", "https://a.example/1.m3u8"}, Cookie: "c=1"}
	res, err := s.Resolve(context.Background(), testRecording)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Segments) != 1 || res.Segments[0].Index != 1 {
		t.Fatalf("unexpected segments %+v", res.Segments)
	}
	if res.Credentials.UserAgent == "" || res.Credentials.Cookie != "c=1" {
		t.Fatalf("unexpected credentials %+v", res.Credentials)
	}

	_, err = (&Static{}).Resolve(context.Background(), testRecording)
	if !errors.Is(err, utils.ErrNoSegments) {
		t.Fatalf("expected ErrNoSegments, got %v", err)
	}
}
