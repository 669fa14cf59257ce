package storage

import "context"

// Receipt is what a backend reports back for one finished upload. Confirmed is only
// set when the remote side acknowledged the full file.
type Receipt struct {
	RemoteURL string
	Bytes     int64
	Confirmed bool
}

// ProgressFunc receives the number of bytes accepted by the remote side so far.
type ProgressFunc func(offset int64)

type Storage interface {
	Upload(ctx context.Context, localPath string, size int64, onProgress ProgressFunc) (Receipt, error)
	Name() string
}
