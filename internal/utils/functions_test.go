package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRecordingURL(t *testing.T) {
	rec, err := ParseRecordingURL("https://twitcasting.tv/c:someone/movie/812345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.OwnerID != "c:someone" || rec.MovieID != "812345678" {
		t.Fatalf("unexpected ids: %+v", rec)
	}

	cases := map[string]error{
		"":                                   ErrNoRecordingURL,
		"https://example.com/someone/movie/1": ErrNotRecordingURL,
		"https://twitcasting.tv/someone":      ErrNotRecordingURL,
	}
	for raw, want := range cases {
		_, err := ParseRecordingURL(raw)
		var setupErr *SetupError
		if !errors.As(err, &setupErr) {
			t.Fatalf("%q: expected SetupError, got %v", raw, err)
		}
		if !errors.Is(err, want) {
			t.Fatalf("%q: expected %v, got %v", raw, want, err)
		}
	}
}

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{"X-One: 1", "broken", ": no key", "X-Two:two: parts"})
	if len(got) != 2 {
		t.Fatalf("expected 2 headers, got %v", got)
	}
	if got["X-Two"] != "two: parts" {
		t.Fatalf("unexpected value %q", got["X-Two"])
	}
}

func TestRelayHTTPClientHeaders(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))
	defer srv.Close()

	base := NewRelayHTTPClient(HTTPClientConfig{Headers: map[string]string{"X-Base": "b"}})
	client := base.WithHeaders(SessionHeaders(Credentials{UserAgent: "ua/1", Cookie: "sid=1"}))

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if seen.Get("X-Base") != "b" || seen.Get("Cookie") != "sid=1" || seen.Get("Referer") != SourceReferer {
		t.Fatalf("missing headers: %v", seen)
	}
	if seen.Get("User-Agent") != "ua/1" {
		t.Fatalf("session user agent should win, got %q", seen.Get("User-Agent"))
	}
	if _, ok := base.config.Headers["Cookie"]; ok {
		t.Fatal("WithHeaders must not mutate the parent client")
	}
}
