package resolver

import (
	"context"

	"github.com/tanq16/castrelay/internal/utils"
)

// Resolver turns a recording page into session credentials and its segment URLs.
// Any failure is a *utils.SetupError.
type Resolver interface {
	Resolve(ctx context.Context, rec utils.Recording) (utils.Resolution, error)
}

// indexSegments numbers segment URLs from 1 in page order, skipping blanks.
func indexSegments(urls []string) []utils.Segment {
	segments := make([]utils.Segment, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		segments = append(segments, utils.Segment{Index: len(segments) + 1, URL: u})
	}
	return segments
}
