package utils

import (
	"errors"
	"fmt"
)

var (
	ErrNoRecordingURL    = errors.New("no recording url")
	ErrNotRecordingURL   = errors.New("not a recording url")
	ErrNoSegments        = errors.New("no media found")
	ErrSessionInvalid    = errors.New("session rejected by source")
	ErrUnconfirmedUpload = errors.New("upload not confirmed by remote storage")
)

// SetupError aborts the whole run before any segment worker starts.
type SetupError struct {
	Reason string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Err == nil {
		return "setup failed: " + e.Reason
	}
	return fmt.Sprintf("setup failed: %s: %v", e.Reason, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// FetchError is a failed segment playlist request. Status is 0 when no response arrived.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http error %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ToolError is a failed or timed-out external tool invocation. ExitCode is -1 when the
// process never exited on its own.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed (exit %d): %v", e.Tool, e.ExitCode, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
