package utils

import "time"

// Recording identifies one movie page and the owner it belongs to.
type Recording struct {
	URL     string
	OwnerID string
	MovieID string
}

// Credentials are captured once per run and shared read-only by every segment worker.
type Credentials struct {
	UserAgent string
	Cookie    string
}

type Segment struct {
	Index int
	URL   string
}

// Resolution is everything a run needs before the first worker starts.
type Resolution struct {
	Recording   Recording
	Credentials Credentials
	Segments    []Segment
}

type SegmentState string

const (
	SegmentPending   SegmentState = "pending"
	SegmentFailed    SegmentState = "failed"
	SegmentUploaded  SegmentState = "uploaded"
	SegmentKept      SegmentState = "kept"
	SegmentCancelled SegmentState = "cancelled"
)

// SegmentOutcome records what happened to one segment over the whole run.
type SegmentOutcome struct {
	Index      int
	State      SegmentState
	LocalPath  string
	RemoteURL  string
	Bytes      int64
	Err        error
	StartTime  time.Time
	FinishTime time.Time
}
