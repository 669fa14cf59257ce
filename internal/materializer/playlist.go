package materializer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/grafov/m3u8"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
)

const maxPlaylistSize = 1 << 20

// resolveStream fetches the segment playlist with the session headers and returns
// the URL the download tool should pull.
func (m *Materializer) resolveStream(ctx context.Context, creds utils.Credentials, segmentURL string) (string, error) {
	if m.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.fetchTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return "", &utils.FetchError{URL: segmentURL, Err: err}
	}
	resp, err := m.client.WithHeaders(utils.SessionHeaders(creds)).Do(req)
	if err != nil {
		return "", &utils.FetchError{URL: segmentURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &utils.FetchError{URL: segmentURL, Status: resp.StatusCode, Err: fmt.Errorf("http error %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistSize))
	if err != nil {
		return "", &utils.FetchError{URL: segmentURL, Err: fmt.Errorf("error reading playlist: %v", err)}
	}
	if bytes.Contains(body, []byte(utils.SessionInvalidMarker)) {
		return "", &utils.FetchError{URL: segmentURL, Err: utils.ErrSessionInvalid}
	}
	mediaURL, err := deriveStreamURL(segmentURL, body)
	if err != nil {
		return "", &utils.FetchError{URL: segmentURL, Err: err}
	}
	return mediaURL, nil
}

// deriveStreamURL picks the stream location out of a playlist body. Master
// playlists yield their last variant; media playlists are the stream themselves.
// Bodies that do not decode fall back to the last whitespace-separated token.
func deriveStreamURL(segmentURL string, body []byte) (string, error) {
	base, err := url.Parse(segmentURL)
	if err != nil {
		return "", err
	}
	target := ""
	p, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	switch {
	case err == nil && listType == m3u8.MASTER:
		master := p.(*m3u8.MasterPlaylist)
		for _, v := range master.Variants {
			if v != nil && v.URI != "" {
				target = v.URI
			}
		}
	case err == nil && listType == m3u8.MEDIA:
		return segmentURL, nil
	default:
		log.Debug().Str("op", "materializer/playlist").Msgf("playlist did not decode (%v), using last token", err)
	}
	if target == "" {
		fields := strings.Fields(string(body))
		if len(fields) == 0 {
			return "", errors.New("empty playlist")
		}
		target = fields[len(fields)-1]
	}
	return joinStreamURL(base, target)
}

func joinStreamURL(base *url.URL, target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("bad stream location %q: %v", target, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if strings.HasPrefix(target, "/") {
		return base.Scheme + "://" + base.Host + target, nil
	}
	return base.ResolveReference(ref).String(), nil
}
