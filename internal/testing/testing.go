// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/lyrx/internal/models"
	"github.com/desertthunder/lyrx/internal/services"
	"github.com/desertthunder/lyrx/internal/shared"
)

// PollResult is one scripted answer of [FakePlayer].
type PollResult struct {
	Playback *models.Playback
	Err      error
}

// FakePlayer is a test double for [services.Player] that replays a script.
//
// Once the script is exhausted the last result is repeated.
type FakePlayer struct {
	mu     sync.Mutex
	script []PollResult
	calls  int
}

// NewFakePlayer creates a player answering with results in order.
func NewFakePlayer(results ...PollResult) *FakePlayer {
	return &FakePlayer{script: results}
}

// Playing is a shorthand for a successful poll of track at position.
func Playing(track *models.Track, position time.Duration) PollResult {
	return PollResult{Playback: &models.Playback{Track: track, Position: position, Playing: true}}
}

// Failing is a shorthand for a failed poll.
func Failing(err error) PollResult {
	return PollResult{Err: err}
}

func (f *FakePlayer) CurrentlyPlaying(ctx context.Context) (*models.Playback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.script) == 0 {
		return &models.Playback{}, nil
	}

	i := min(f.calls-1, len(f.script)-1)
	res := f.script[i]
	if res.Err != nil {
		return nil, res.Err
	}
	pb := *res.Playback
	return &pb, nil
}

func (f *FakePlayer) Name() string { return "fake" }

// Calls returns how many polls were answered.
func (f *FakePlayer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeProvider is a test double for [services.LyricsProvider] keyed by track title.
//
// Unknown titles return [shared.ErrLyricsNotFound]. When Gate is set, Lookup blocks until it is closed or
// the context is done.
type FakeProvider struct {
	Lyrics map[string]*services.Lyrics
	Errs   map[string]error
	Gate   chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *FakeProvider) Lookup(ctx context.Context, query services.LyricsQuery) (*services.Lyrics, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query.Title)
	f.mu.Unlock()

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.Errs[query.Title]; ok {
		return nil, err
	}
	if l, ok := f.Lyrics[query.Title]; ok {
		return l, nil
	}
	return nil, shared.ErrLyricsNotFound
}

func (f *FakeProvider) Name() string { return "fake" }

// Calls returns the titles looked up so far.
func (f *FakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// MemoryCache is an in-memory lyrics cache keyed by track id.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]*services.Lyrics
	Err   error // returned by Put when set
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]*services.Lyrics)}
}

func (c *MemoryCache) Get(track models.Track) (*services.Lyrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.items[track.ID]; ok {
		return l, nil
	}
	return nil, shared.ErrCacheMiss
}

func (c *MemoryCache) Put(track models.Track, lyrics *services.Lyrics) error {
	if c.Err != nil {
		return c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[track.ID] = lyrics
	return nil
}

// Len returns the number of cached tracks.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// Eventually polls cond every few milliseconds until it holds or timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
