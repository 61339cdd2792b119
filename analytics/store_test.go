package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := InitSalt(s); err != nil {
		t.Fatalf("InitSalt: %v", err)
	}
	return s
}

func TestNewStoreSetsSchemaVersion(t *testing.T) {
	s := setupTestStore(t)
	v, err := s.GetSetting("schema_version")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "1" {
		t.Fatalf("schema_version = %q, want 1", v)
	}
}

func TestSettingsUpsert(t *testing.T) {
	s := setupTestStore(t)

	if v, err := s.GetSetting("missing"); err != nil || v != "" {
		t.Fatalf("GetSetting(missing) = %q, %v", v, err)
	}
	if err := s.SetSetting("k", "one"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting("k", "two"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	if v, _ := s.GetSetting("k"); v != "two" {
		t.Fatalf("GetSetting(k) = %q, want two", v)
	}
}

func TestGetStatsAggregates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	views := []View{
		{VisitorID: "v1", Browser: "Firefox", Device: "Desktop", Path: "/posts/a/", Referrer: "Direct", Timestamp: day},
		{VisitorID: "v1", Browser: "Firefox", Device: "Desktop", Path: "/", Referrer: "Direct", Timestamp: day.Add(time.Minute)},
		{VisitorID: "v2", Browser: "Chrome", Device: "Mobile", Path: "/posts/a/", Referrer: "Google", Timestamp: day.AddDate(0, 0, 1)},
		// Outside the window.
		{VisitorID: "v3", Browser: "Safari", Device: "Mobile", Path: "/old/", Referrer: "Direct", Timestamp: day.AddDate(0, 0, -30)},
	}
	for _, v := range views {
		if err := s.SaveView(ctx, v); err != nil {
			t.Fatalf("SaveView: %v", err)
		}
	}
	if err := s.SaveBotView(ctx, BotView{BotName: "Googlebot", Path: "/", Timestamp: day}); err != nil {
		t.Fatalf("SaveBotView: %v", err)
	}

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	stats, err := s.GetStats(ctx, from, from.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	if stats.TotalViews != 3 {
		t.Errorf("TotalViews = %d, want 3", stats.TotalViews)
	}
	if stats.UniqueVisitors != 2 {
		t.Errorf("UniqueVisitors = %d, want 2", stats.UniqueVisitors)
	}
	if stats.BotViews != 1 {
		t.Errorf("BotViews = %d, want 1", stats.BotViews)
	}
	if len(stats.TopPages) != 2 || stats.TopPages[0].Path != "/posts/a/" || stats.TopPages[0].Views != 2 {
		t.Errorf("TopPages = %+v", stats.TopPages)
	}
	if len(stats.Browsers) != 2 || stats.Browsers[0].Name != "Firefox" {
		t.Errorf("Browsers = %+v", stats.Browsers)
	}
	if len(stats.TopBots) != 1 || stats.TopBots[0].Name != "Googlebot" {
		t.Errorf("TopBots = %+v", stats.TopBots)
	}

	wantDaily := []DailyView{{"2026-03-10", 2}, {"2026-03-11", 1}, {"2026-03-12", 0}}
	if len(stats.DailyViews) != len(wantDaily) {
		t.Fatalf("DailyViews = %+v", stats.DailyViews)
	}
	for i, d := range wantDaily {
		if stats.DailyViews[i] != d {
			t.Errorf("DailyViews[%d] = %+v, want %+v", i, stats.DailyViews[i], d)
		}
	}
}

func TestGetStatsEmptyWindow(t *testing.T) {
	s := setupTestStore(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	stats, err := s.GetStats(context.Background(), from, from.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalViews != 0 || len(stats.TopPages) != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if stats.TopPages == nil || stats.Browsers == nil {
		t.Fatalf("empty lists should encode as [], got nil")
	}
}

func TestCleanupOldViews(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, ts := range []time.Time{now.AddDate(0, 0, -400), now.AddDate(0, 0, -1)} {
		if err := s.SaveView(ctx, View{VisitorID: "v", Path: "/", Timestamp: ts}); err != nil {
			t.Fatalf("SaveView: %v", err)
		}
	}
	if err := s.SaveBotView(ctx, BotView{BotName: "Bingbot", Path: "/", Timestamp: now.AddDate(0, 0, -400)}); err != nil {
		t.Fatalf("SaveBotView: %v", err)
	}

	n, err := s.CleanupOldViews(ctx, 365)
	if err != nil {
		t.Fatalf("CleanupOldViews: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed %d rows, want 2", n)
	}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

func TestStartCleanupScheduler(t *testing.T) {
	s := setupTestStore(t)

	stop, err := s.StartCleanupScheduler(365, DailyPurge, nopLogger{})
	if err != nil {
		t.Fatalf("StartCleanupScheduler: %v", err)
	}
	stop()

	if _, err := s.StartCleanupScheduler(365, "not a schedule", nopLogger{}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
