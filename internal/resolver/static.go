package resolver

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/castrelay/internal/utils"
)

// Static serves segment URLs and credentials taken straight from configuration.
type Static struct {
	Segments  []string
	Cookie    string
	UserAgent string
}

func (s *Static) Resolve(ctx context.Context, rec utils.Recording) (utils.Resolution, error) {
	segments := indexSegments(s.Segments)
	if len(segments) == 0 {
		return utils.Resolution{}, &utils.SetupError{Reason: rec.URL, Err: utils.ErrNoSegments}
	}
	ua := s.UserAgent
	if ua == "" {
		ua = utils.GetRandomUserAgent()
		log.Debug().Str("op", "resolver/static").Msgf("no user agent configured, using %s", ua)
	}
	log.Info().Str("op", "resolver/static").Msgf("found %d segments", len(segments))
	return utils.Resolution{
		Recording:   rec,
		Credentials: utils.Credentials{UserAgent: ua, Cookie: s.Cookie},
		Segments:    segments,
	}, nil
}
