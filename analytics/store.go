package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// DailyPurge is the cron schedule of the retention purge: 03:15 UTC daily.
const DailyPurge = "15 3 * * *"

// tsLayout is fixed-width so timestamps compare correctly as text.
const tsLayout = "2006-01-02 15:04:05.000000000"

func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

// Store keeps page views in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS views (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_views (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_views_timestamp ON views(timestamp);
		CREATE INDEX IF NOT EXISTS idx_views_path ON views(path);
		CREATE INDEX IF NOT EXISTS idx_bot_views_timestamp ON bot_views(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	verStr, err := s.GetSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		if version, err = strconv.Atoi(verStr); err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than this binary (%d)", version, currentSchemaVersion)
	}
	return s.SetSetting("schema_version", strconv.Itoa(currentSchemaVersion))
}

// GetSetting returns a setting value, or "" if it is not set.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveView stores one page view.
func (s *Store) SaveView(ctx context.Context, v View) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO views
		(visitor_id, ip_hash, browser, os, device, path, referrer, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.IPHash, v.Browser, v.OS, v.Device, v.Path, v.Referrer, ts(v.Timestamp))
	return err
}

// SaveBotView stores one crawler page view.
func (s *Store) SaveBotView(ctx context.Context, v BotView) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO bot_views
		(bot_name, ip_hash, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		v.BotName, v.IPHash, v.UserAgent, v.Path, ts(v.Timestamp))
	return err
}

// GetStats aggregates views in [from, to).
func (s *Store) GetStats(ctx context.Context, from, to time.Time) (*Stats, error) {
	from, to = from.UTC(), to.UTC()
	stats := &Stats{From: from, To: to}
	lo, hi := ts(from), ts(to)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COUNT(DISTINCT visitor_id) FROM views WHERE timestamp >= ? AND timestamp < ?`,
			lo, hi).Scan(&stats.TotalViews, &stats.UniqueVisitors)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bot_views WHERE timestamp >= ? AND timestamp < ?`,
			lo, hi).Scan(&stats.BotViews)
	})
	g.Go(func() error {
		var err error
		stats.TopPages, err = s.topPages(ctx, lo, hi)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Browsers, err = s.dimension(ctx, "views", "browser", lo, hi)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Devices, err = s.dimension(ctx, "views", "device", lo, hi)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Referrers, err = s.dimension(ctx, "views", "referrer", lo, hi)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TopBots, err = s.dimension(ctx, "bot_views", "bot_name", lo, hi)
		return err
	})
	g.Go(func() error {
		var err error
		stats.DailyViews, err = s.dailyViews(ctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

func (s *Store) topPages(ctx context.Context, from, to string) ([]PageStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, COUNT(*) AS n FROM views
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY path ORDER BY n DESC, path LIMIT 20`, from, to)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	defer rows.Close()
	out := []PageStat{}
	for rows.Next() {
		var p PageStat
		if err := rows.Scan(&p.Path, &p.Views); err != nil {
			return nil, fmt.Errorf("top pages: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// dimension counts rows of table grouped by column. Both names are
// constants chosen by the caller, never user input.
func (s *Store) dimension(ctx context.Context, table, column, from, to string) ([]DimensionStat, error) {
	q := fmt.Sprintf(`SELECT %[2]s, COUNT(*) AS n FROM %[1]s
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY %[2]s ORDER BY n DESC, %[2]s LIMIT 10`, table, column)
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s stats: %w", column, err)
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, fmt.Errorf("%s stats: %w", column, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// dailyViews returns one entry per day in [from, to), zero-filled.
func (s *Store) dailyViews(ctx context.Context, from, to time.Time) ([]DailyView, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT substr(timestamp, 1, 10) AS day, COUNT(*) FROM views
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY day`, ts(from), ts(to))
	if err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("daily views: %w", err)
		}
		counts[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}
	out := []DailyView{}
	for d := from.Truncate(24 * time.Hour); d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, DailyView{Date: key, Views: counts[key]})
	}
	return out, nil
}

// CleanupOldViews deletes views and bot views older than retentionDays.
func (s *Store) CleanupOldViews(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	var total int64
	for _, table := range []string{"views", "bot_views"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, ts(cutoff))
		if err != nil {
			return total, fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Logger receives purge results. echo.Logger satisfies it.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// StartCleanupScheduler purges old views on the given cron schedule and
// returns a stop function that waits for a running purge to finish.
func (s *Store) StartCleanupScheduler(retentionDays int, schedule string, logger Logger) (func(), error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := s.CleanupOldViews(ctx, retentionDays)
		if err != nil {
			logger.Errorf("analytics cleanup: %v", err)
			return
		}
		logger.Infof("analytics cleanup: removed %d views older than %d days", n, retentionDays)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
