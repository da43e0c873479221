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

	"github.com/desertthunder/sp2yt/internal/auth"
	"github.com/desertthunder/sp2yt/internal/models"
)

// MockFetcher is a test double for tasks.TrackFetcher
type MockFetcher struct {
	Tracks []models.Track
	Err    error

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) FetchTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	m.mu.Lock()
	m.calls = append(m.calls, playlistID)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks, nil
}

// Calls returns the playlist ids requested so far.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockSearcher is a test double for tasks.VideoSearcher.
//
// Results maps a query to a video id; a query missing from Results is not found.
// Errors maps a query to the error its search returns.
type MockSearcher struct {
	Results map[string]string
	Errors  map[string]error
	// Block, when set, makes every search wait for ctx to end.
	Block bool

	mu      sync.Mutex
	queries []string
}

func (m *MockSearcher) SearchVideo(ctx context.Context, query string) (string, bool, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Block {
		<-ctx.Done()
		return "", false, ctx.Err()
	}
	if err, ok := m.Errors[query]; ok {
		return "", false, err
	}
	id, ok := m.Results[query]
	return id, ok, nil
}

// Queries returns the queries searched so far, in call order.
func (m *MockSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockPublisher is a test double for tasks.Publisher
type MockPublisher struct {
	PlaylistID string
	Err        error

	Title   string
	Token   string
	Matches []models.VideoMatch
	Calls   int
}

func (m *MockPublisher) Publish(ctx context.Context, title string, matches []models.VideoMatch, accessToken string) (*models.PublishResult, error) {
	m.Calls++
	m.Title = title
	m.Token = accessToken
	m.Matches = matches

	result := &models.PublishResult{
		Playlist: models.YouTubePlaylist{ID: m.PlaylistID, Title: title, VideoIDs: []string{}},
		Failed:   []models.ItemFailure{},
	}
	if m.Err != nil {
		return result, m.Err
	}
	for _, match := range matches {
		result.Playlist.VideoIDs = append(result.Playlist.VideoIDs, match.VideoID)
		result.Inserted++
	}
	return result, nil
}

// MockSessions is a test double for tasks.SessionResolver
type MockSessions struct {
	Resolution  auth.Resolution
	Err         error
	RedirectURL string

	Invalidated []string
}

func (m *MockSessions) Resolve(ctx context.Context, sessionID string) (auth.Resolution, error) {
	return m.Resolution, m.Err
}

func (m *MockSessions) Invalidate(ctx context.Context, sessionID string) error {
	m.Invalidated = append(m.Invalidated, sessionID)
	return nil
}

func (m *MockSessions) AuthURL(sessionID string) string {
	return m.RedirectURL
}

// MockRecorder is a test double for tasks.Recorder
type MockRecorder struct {
	Err     error
	Entries []*models.Conversion
}

func (m *MockRecorder) Record(ctx context.Context, c *models.Conversion) error {
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, c)
	return nil
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
