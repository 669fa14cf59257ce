package utils

import (
	"fmt"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// ParseRecordingURL splits a movie page URL into owner and movie ids.
func ParseRecordingURL(raw string) (Recording, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Recording{}, &SetupError{Reason: "recording url", Err: ErrNoRecordingURL}
	}
	match := RecordingURLRegex.FindStringSubmatch(raw)
	if match == nil {
		return Recording{}, &SetupError{Reason: raw, Err: ErrNotRecordingURL}
	}
	return Recording{URL: raw, OwnerID: match[1], MovieID: match[2]}, nil
}

// ParseHeaderArgs turns "Key: Value" entries into a header map, skipping malformed ones.
func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		result[key] = strings.TrimSpace(parts[1])
	}
	return result
}

// SessionHeaders are the request headers every segment playlist fetch carries.
func SessionHeaders(creds Credentials) map[string]string {
	return map[string]string{
		"Cookie":     creds.Cookie,
		"Origin":     SourceOrigin,
		"Referer":    SourceReferer,
		"User-Agent": creds.UserAgent,
	}
}

func FormatHeader(key, value string) string {
	return fmt.Sprintf("%s: %s", key, value)
}
