package pubfront

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pubfront/cms"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warnf(string, ...interface{}) {}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// bucket is the content the fake Cosmic API serves.
type bucket struct {
	posts      []map[string]any
	authors    []map[string]any
	categories []map[string]any
	// fail makes every query for the named type answer 500.
	fail string
}

type fakeCosmic struct {
	srv   *httptest.Server
	mu    sync.Mutex
	calls []url.Values
	data  bucket
}

func newFakeCosmic(t *testing.T, data bucket) *fakeCosmic {
	t.Helper()
	f := &fakeCosmic{data: data}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCosmic) serve(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	f.mu.Lock()
	f.calls = append(f.calls, v)
	f.mu.Unlock()

	filter := map[string]string{}
	if err := json.Unmarshal([]byte(v.Get("query")), &filter); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	typ := filter["type"]
	if typ == f.data.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":500,"message":"boom"}`))
		return
	}

	var pool []map[string]any
	switch typ {
	case "posts":
		pool = f.data.posts
	case "authors":
		pool = f.data.authors
	case "categories":
		pool = f.data.categories
	}

	matches := []map[string]any{}
	for _, obj := range pool {
		if obj["status"] == "draft" && v.Get("status") != cms.StatusAny {
			continue
		}
		if matchesFilter(obj, filter) {
			matches = append(matches, obj)
		}
	}
	if len(matches) == 0 {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404,"message":"No objects found"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"objects": matches, "total": len(matches)})
}

func matchesFilter(obj map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		switch {
		case k == "type":
		case strings.HasPrefix(k, "metadata."):
			meta, _ := obj["metadata"].(map[string]any)
			ref, _ := meta[strings.TrimPrefix(k, "metadata.")].(map[string]any)
			if ref == nil || ref["id"] != want {
				return false
			}
		default:
			if obj[k] != want {
				return false
			}
		}
	}
	return true
}

func (f *fakeCosmic) lastCall(typ string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if strings.Contains(f.calls[i].Get("query"), `"type":"`+typ+`"`) {
			return f.calls[i]
		}
	}
	return nil
}

var (
	jane = map[string]any{
		"id": "a1", "slug": "jane-doe", "title": "Jane Doe", "type": "authors",
		"metadata": map[string]any{"name": "Jane Doe", "bio": "Writes about Go."},
	}
	sam = map[string]any{
		"id": "a2", "slug": "sam-roe", "title": "Sam Roe", "type": "authors",
		"metadata": map[string]any{"name": "Sam Roe"},
	}
	tech = map[string]any{
		"id": "c1", "slug": "tech", "title": "Technology", "type": "categories",
		"metadata": map[string]any{"name": "Technology", "color": "#3B82F6"},
	}
	travel = map[string]any{
		"id": "c2", "slug": "travel", "title": "Travel", "type": "categories",
		"metadata": map[string]any{"name": "Travel"},
	}
)

func testPost(id, slug, title, date string, featured bool) map[string]any {
	return map[string]any{
		"id": id, "slug": slug, "title": title, "type": "posts", "status": "published",
		"created_at":   date,
		"published_at": date,
		"metadata": map[string]any{
			"content":  "Some *body* text for " + title + ".",
			"excerpt":  "About " + title,
			"featured": featured,
			"tags":     "go, web",
			"author":   jane,
			"category": tech,
		},
	}
}

func defaultBucket() bucket {
	draft := testPost("p4", "draft-post", "Draft Post", "2024-04-01T10:00:00Z", false)
	draft["status"] = "draft"
	return bucket{
		posts: []map[string]any{
			testPost("p1", "hello-world", "Hello World", "2024-03-03T10:00:00Z", true),
			testPost("p2", "second-post", "Second Post", "2024-03-02T10:00:00Z", false),
			testPost("p3", "third-post", "Third Post", "2024-03-01T10:00:00Z", false),
			draft,
		},
		authors:    []map[string]any{jane, sam},
		categories: []map[string]any{tech, travel},
	}
}

func testConfig() SiteConfig {
	return SiteConfig{
		Name:          "Test Blog",
		URL:           "https://blog.example.com",
		Description:   "A blog for tests",
		Author:        "Jane Doe",
		PreviewSecret: "letmein",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	}
}

type testApp struct {
	*App
	cosmic *fakeCosmic
	logger *recordingLogger
}

func newTestApp(t *testing.T, data bucket, opts ...Option) *testApp {
	t.Helper()
	f := newFakeCosmic(t, data)
	logger := &recordingLogger{}
	client, err := cms.New(cms.Config{
		BucketSlug: "test-bucket",
		ReadKey:    "read-secret",
		WriteKey:   "write-secret",
		BaseURL:    f.srv.URL,
	}, cms.WithLogger(logger))
	require.NoError(t, err)

	opts = append([]Option{WithContentClient(client)}, opts...)
	a := New(testConfig(), opts...)
	require.NoError(t, a.Init())
	t.Cleanup(func() { a.Close() })
	return &testApp{App: a, cosmic: f, logger: logger}
}

func (a *testApp) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}
