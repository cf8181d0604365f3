// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// MemoryBackend is an in-memory session backend. Setting Err makes every call fail with it.
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	sequence int
	gets     atomic.Int64
	Err      error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*models.Session)}
}

func (b *MemoryBackend) Create(_ context.Context, s *models.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	if s.ID == "" {
		s.ID = shared.GenerateID()
	}
	b.sequence++
	s.Sequence = b.sequence
	if err := s.Validate(); err != nil {
		return err
	}
	b.sessions[s.ID] = s.Clone()
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, id string) (*models.Session, error) {
	b.gets.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return nil, b.Err
	}
	s, ok := b.sessions[id]
	if !ok || s.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return s.Clone(), nil
}

func (b *MemoryBackend) Update(_ context.Context, s *models.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	if _, ok := b.sessions[s.ID]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, s.ID)
	}
	b.sessions[s.ID] = s.Clone()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	delete(b.sessions, id)
	return nil
}

// Put stores s as-is, bypassing sequence assignment.
func (b *MemoryBackend) Put(s *models.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[s.ID] = s.Clone()
}

// Stored returns the stored copy of id, or nil.
func (b *MemoryBackend) Stored(id string) *models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[id].Clone()
}

// Gets returns how many times Get was called.
func (b *MemoryBackend) Gets() int {
	return int(b.gets.Load())
}

// FakeContent is a test double for services.ContentService
type FakeContent struct {
	mu     sync.Mutex
	calls  int
	tokens []string
	Feeds  []*models.Feed
	Errs   []error
}

// Feed returns the next queued feed or error. The last entry repeats.
func (f *FakeContent) Feed(_ context.Context, token string) (*models.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	f.tokens = append(f.tokens, token)

	var err error
	if len(f.Errs) > 0 {
		err = f.Errs[min(i, len(f.Errs)-1)]
	}
	if err != nil {
		return nil, err
	}
	if len(f.Feeds) == 0 {
		return &models.Feed{Channel: models.Channel{ID: "UC1", Title: models.DefaultChannelTitle}}, nil
	}
	return f.Feeds[min(i, len(f.Feeds)-1)], nil
}

func (f *FakeContent) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeContent) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
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

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
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
