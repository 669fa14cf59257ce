package utils

import (
	"regexp"
	"time"
)

const (
	DefaultQueueCapacity = 10
	DefaultLaunchStagger = 5 * time.Second
	DefaultPollInterval  = 5 * time.Second
	DefaultMaxWorkers    = 4
	DefaultToolThreads   = 3

	SourceOrigin  = "https://twitcasting.tv"
	SourceReferer = "https://twitcasting.tv/"

	// SessionInvalidMarker appears in the playlist body when the cookie or user agent was rejected.
	SessionInvalidMarker = "Bad"

	// FinalChunkThreshold is the remaining byte count at which an upload is reported as finished.
	FinalChunkThreshold = 1000000

	// SocketBufferSize holds at least one default upload chunk.
	SocketBufferSize = 1024 * 1024

	OutputDirName = "output"
	LockFileName  = ".castrelay.lock"
)

var RecordingURLRegex = regexp.MustCompile(`^https://twitcasting\.tv/([^/]+)/movie/([^/?#]+)`)

// Local-only User-Agent list, used when a static resolver has no browser user agent
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36 Edg/132.0.0.0",
}
