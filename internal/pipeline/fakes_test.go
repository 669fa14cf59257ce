package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanq16/castrelay/internal/storage"
	"github.com/tanq16/castrelay/internal/utils"
)

type fakeResolver struct {
	res utils.Resolution
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, rec utils.Recording) (utils.Resolution, error) {
	return f.res, f.err
}

func resolution(n int) *fakeResolver {
	var segs []utils.Segment
	for i := 1; i <= n; i++ {
		segs = append(segs, utils.Segment{Index: i, URL: fmt.Sprintf("https://media.example/%d.m3u8", i)})
	}
	return &fakeResolver{res: utils.Resolution{Credentials: utils.Credentials{UserAgent: "ua"}, Segments: segs}}
}

// fakeMaterializer writes output/<index>.mp4 after an optional delay.
type fakeMaterializer struct {
	dir    string
	delays map[int]time.Duration
	fail   map[int]error
	calls  atomic.Int32
	active atomic.Int32
	peak   atomic.Int32
}

func newFakeMaterializer(t *testing.T) *fakeMaterializer {
	t.Helper()
	return &fakeMaterializer{dir: t.TempDir(), delays: map[int]time.Duration{}, fail: map[int]error{}}
}

func (f *fakeMaterializer) Materialize(ctx context.Context, rec utils.Recording, creds utils.Credentials, seg utils.Segment) (string, error) {
	f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if d := f.delays[seg.Index]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.fail[seg.Index]; err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, fmt.Sprintf("rec_%d.mp4", seg.Index))
	if err := os.WriteFile(path, []byte(fmt.Sprintf("segment %d", seg.Index)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeStorage records upload order and can fail or leave uploads unconfirmed.
type fakeStorage struct {
	mu          sync.Mutex
	uploaded    []string
	failFor     map[string]bool
	unconfirmed map[string]bool
	missing     []string
	calls       int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{failFor: map[string]bool{}, unconfirmed: map[string]bool{}}
}

func (f *fakeStorage) Name() string { return "fake" }

func (f *fakeStorage) Upload(ctx context.Context, localPath string, size int64, onProgress storage.ProgressFunc) (storage.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	name := filepath.Base(localPath)
	if _, err := os.Stat(localPath); err != nil {
		f.missing = append(f.missing, name)
	}
	if f.failFor[name] {
		return storage.Receipt{}, errors.New("remote said no")
	}
	onProgress(size)
	f.uploaded = append(f.uploaded, name)
	if f.unconfirmed[name] {
		return storage.Receipt{RemoteURL: "https://remote/" + name, Bytes: size - 1}, nil
	}
	return storage.Receipt{RemoteURL: "https://remote/" + name, Bytes: size, Confirmed: true}, nil
}

func (f *fakeStorage) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploaded...)
}

func fastOptions() Options {
	return Options{
		QueueCapacity: utils.DefaultQueueCapacity,
		LaunchStagger: time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		UploadTimeout: 5 * time.Second,
	}
}

var testRec = utils.Recording{URL: "https://twitcasting.tv/rec/movie/1", OwnerID: "rec", MovieID: "1"}

// runWithin fails the test if the run does not terminate in time.
func runWithin(t *testing.T, c *Controller, ctx context.Context) (*Summary, error) {
	t.Helper()
	type result struct {
		s   *Summary
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.Run(ctx, testRec)
		done <- result{s, err}
	}()
	select {
	case r := <-done:
		return r.s, r.err
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not terminate")
		return nil, nil
	}
}
