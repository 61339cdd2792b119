package cms

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingLogger counts failure reports.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// fakeCosmic serves /buckets/{slug}/objects and lets each test decide the
// answer from the decoded query.
type fakeCosmic struct {
	t       *testing.T
	srv     *httptest.Server
	mu      sync.Mutex
	calls   []url.Values
	respond func(filter map[string]string, v url.Values) (int, any)
}

func newFakeCosmic(t *testing.T, respond func(filter map[string]string, v url.Values) (int, any)) *fakeCosmic {
	t.Helper()
	f := &fakeCosmic{t: t, respond: respond}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCosmic) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/buckets/test-bucket/objects" {
		http.NotFound(w, r)
		return
	}
	v := r.URL.Query()
	f.mu.Lock()
	f.calls = append(f.calls, v)
	f.mu.Unlock()

	filter := map[string]string{}
	if err := json.Unmarshal([]byte(v.Get("query")), &filter); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	code, body := f.respond(filter, v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	switch b := body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(b))
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (f *fakeCosmic) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCosmic) lastCall() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeCosmic) client(t *testing.T, logger Logger, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(logger)}, opts...)
	c, err := New(Config{
		BucketSlug: "test-bucket",
		ReadKey:    "read-secret",
		WriteKey:   "write-secret",
		BaseURL:    f.srv.URL,
	}, opts...)
	require.NoError(t, err)
	return c
}

func notFoundBody() map[string]any {
	return map[string]any{"status": 404, "message": "No objects found"}
}

func postJSON(id, slug, title string) map[string]any {
	return map[string]any{
		"id":         id,
		"slug":       slug,
		"title":      title,
		"type":       "posts",
		"created_at": "2024-03-01T10:00:00.000Z",
		"metadata": map[string]any{
			"content":  "# " + title,
			"featured": false,
			"author": map[string]any{
				"id": "a1", "slug": "jane-doe", "title": "Jane Doe", "type": "authors",
				"metadata": map[string]any{"name": "Jane Doe"},
			},
			"category": map[string]any{
				"id": "c1", "slug": "tech", "title": "Tech", "type": "categories",
				"metadata": map[string]any{"name": "Technology", "color": "#3B82F6"},
			},
		},
	}
}

func authorJSON(id, slug, name string) map[string]any {
	return map[string]any{
		"id": id, "slug": slug, "title": name, "type": "authors",
		"metadata": map[string]any{"name": name, "bio": "Writes things."},
	}
}
