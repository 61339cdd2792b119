package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name                string
		ua                  string
		browser, os, device string
	}{
		{"chrome on windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", "Chrome", "Windows", "Desktop"},
		{"firefox on linux", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox", "Linux", "Desktop"},
		{"edge", "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0", "Edge", "Windows", "Desktop"},
		{"safari on iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1", "Safari", "iOS", "Mobile"},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1", "Safari", "iOS", "Tablet"},
		{"android", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36", "Chrome", "Android", "Mobile"},
		{"unknown", "curl-ish", "Other", "Other", "Desktop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, o, d := ParseUserAgent(tt.ua)
			if b != tt.browser || o != tt.os || d != tt.device {
				t.Errorf("ParseUserAgent = (%s, %s, %s), want (%s, %s, %s)", b, o, d, tt.browser, tt.os, tt.device)
			}
		})
	}
}

func TestBotDetection(t *testing.T) {
	tests := []struct {
		ua    string
		isBot bool
		name  string
	}{
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true, "Googlebot"},
		{"Mozilla/5.0 AppleWebKit/537.36 (KHTML, like Gecko; compatible; GPTBot/1.0)", true, "GPTBot"},
		{"SomeCrawler/1.0", true, "Other Bot"},
		{"", true, ""},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", false, ""},
	}
	for _, tt := range tests {
		if got := IsBot(tt.ua); got != tt.isBot {
			t.Errorf("IsBot(%q) = %v, want %v", tt.ua, got, tt.isBot)
		}
		if got := BotName(tt.ua); got != tt.name {
			t.Errorf("BotName(%q) = %q, want %q", tt.ua, got, tt.name)
		}
	}
}

func TestCleanReferrer(t *testing.T) {
	tests := []struct{ ref, want string }{
		{"", "Direct"},
		{"https://www.google.com/search?q=go", "Google"},
		{"https://news.ycombinator.com/item?id=1", "news.ycombinator.com"},
		{"https://www.example.com/posts/a/", "Direct"},
		{"not a url", "Other"},
	}
	for _, tt := range tests {
		if got := CleanReferrer(tt.ref, "example.com"); got != tt.want {
			t.Errorf("CleanReferrer(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestVisitorIDRotatesDaily(t *testing.T) {
	day := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	a := VisitorID("198.51.100.1", "ua", day)
	if a != VisitorID("198.51.100.1", "ua", day.Add(time.Hour)) {
		t.Error("same-day IDs differ")
	}
	if a == VisitorID("198.51.100.1", "ua", day.AddDate(0, 0, 1)) {
		t.Error("next-day ID should differ")
	}
	if len(a) != 16 {
		t.Errorf("len = %d, want 16", len(a))
	}
	if HashIP("198.51.100.1") == "198.51.100.1" {
		t.Error("HashIP returned the raw address")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in, period string
		days       int
	}{
		{"today", "today", 1},
		{"week", "week", 7},
		{"month", "month", 30},
		{"year", "year", 365},
		{"bogus", "week", 7},
	}
	for _, tt := range tests {
		p, d := parsePeriod(tt.in)
		if p != tt.period || d != tt.days {
			t.Errorf("parsePeriod(%q) = (%s, %d), want (%s, %d)", tt.in, p, d, tt.period, tt.days)
		}
	}
}

func TestCalcTimeRange(t *testing.T) {
	now := time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)
	from, to := calcTimeRange(now, 1)
	if !from.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("calcTimeRange = %v..%v", from, to)
	}
}

func newRecorderEcho(s *Store) *echo.Echo {
	e := echo.New()
	e.Use(Recorder(s, RecorderConfig{
		Skipper: func(c echo.Context) bool { return c.Request().URL.Path == "/skip/" },
	}))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/", ok)
	e.GET("/skip/", ok)
	e.GET("/missing/", func(c echo.Context) error { return echo.ErrNotFound })
	return e
}

func get(e *echo.Echo, path, ua string, hdr map[string]string) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", ua)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	e.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRecorder(t *testing.T) {
	s := setupTestStore(t)
	e := newRecorderEcho(s)
	firefox := "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

	get(e, "/", firefox, map[string]string{"Referer": "https://www.bing.com/"})
	get(e, "/", firefox, map[string]string{"DNT": "1"})
	get(e, "/skip/", firefox, nil)
	get(e, "/missing/", firefox, nil)
	get(e, "/", "Googlebot/2.1", nil)

	now := time.Now().UTC()
	stats, err := s.GetStats(t.Context(), now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalViews != 1 {
		t.Errorf("TotalViews = %d, want 1", stats.TotalViews)
	}
	if stats.BotViews != 1 {
		t.Errorf("BotViews = %d, want 1", stats.BotViews)
	}
	if len(stats.Referrers) != 1 || stats.Referrers[0].Name != "Bing" {
		t.Errorf("Referrers = %+v", stats.Referrers)
	}
}

func TestStatsHandler(t *testing.T) {
	s := setupTestStore(t)
	if err := s.SaveView(t.Context(), View{VisitorID: "v", Path: "/", Timestamp: time.Now()}); err != nil {
		t.Fatalf("SaveView: %v", err)
	}

	e := echo.New()
	e.GET("/stats", NewHandler(s).Stats)
	req := httptest.NewRequest(http.MethodGet, "/stats?period=today", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Period != "today" || body.Stats.TotalViews != 1 {
		t.Fatalf("body = %+v", body)
	}
}
