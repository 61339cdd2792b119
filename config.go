package pubfront

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/views"
)

// SiteConfig holds all configuration for a pubfront site.
type SiteConfig struct {
	Name        string          // Site name (default "Blog")
	URL         string          // Canonical URL (default "http://localhost:3000")
	Description string          // Site description for RSS and meta tags
	Author      string          // Author name for JSON-LD
	Nav         []views.NavLink // Header and footer links

	Addr string // Listen address (default ":3000")

	Cosmic cms.Config // Bucket slug, read key and write key are required

	PreviewSecret string // Enables preview mode when set
	SessionSecret string // Session signing secret (random per process if empty)
	CookieSecure  bool   // Set true for HTTPS

	RateLimit float64 // Requests per second per IP (default 20, negative disables)

	AnalyticsEnabled       bool   // Record page views (default false)
	AnalyticsDatabasePath  string // Analytics SQLite path (default "data/analytics.db")
	AnalyticsRetentionDays int    // Purge page views older than this (default 365)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.SessionSecret == "" {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		c.SessionSecret = hex.EncodeToString(b)
	}
	if c.RateLimit == 0 {
		c.RateLimit = 20
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.AnalyticsRetentionDays == 0 {
		c.AnalyticsRetentionDays = 365
	}
}

// View returns the subset of the configuration templates see.
func (c SiteConfig) View() views.SiteConfig {
	return views.SiteConfig{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
		Nav:         c.Nav,
	}
}

// FromEnv reads a SiteConfig from environment variables. Missing Cosmic
// credentials are reported by App.Start, not here.
func FromEnv() SiteConfig {
	return SiteConfig{
		Name:        os.Getenv("SITE_NAME"),
		URL:         os.Getenv("SITE_URL"),
		Description: os.Getenv("SITE_DESCRIPTION"),
		Author:      os.Getenv("SITE_AUTHOR"),
		Addr:        os.Getenv("ADDR"),
		Cosmic: cms.Config{
			BucketSlug: os.Getenv("COSMIC_BUCKET_SLUG"),
			ReadKey:    os.Getenv("COSMIC_READ_KEY"),
			WriteKey:   os.Getenv("COSMIC_WRITE_KEY"),
		},
		PreviewSecret:          os.Getenv("PREVIEW_SECRET"),
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		CookieSecure:           envBool("COOKIE_SECURE", false),
		RateLimit:              envFloat("RATE_LIMIT", 0),
		AnalyticsEnabled:       envBool("ANALYTICS_ENABLED", false),
		AnalyticsDatabasePath:  os.Getenv("ANALYTICS_DATABASE_PATH"),
		AnalyticsRetentionDays: envInt("ANALYTICS_RETENTION_DAYS", 0),
	}
}

// siteFile is the optional YAML file describing the site's identity.
type siteFile struct {
	Name        string          `yaml:"name"`
	URL         string          `yaml:"url"`
	Description string          `yaml:"description"`
	Author      string          `yaml:"author"`
	Nav         []views.NavLink `yaml:"nav"`
}

// LoadSiteFile fills the fields the environment left empty from a YAML
// site file. A missing file is reported as an error wrapping fs.ErrNotExist.
func (c *SiteConfig) LoadSiteFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pubfront: read site file: %w", err)
	}
	var f siteFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("pubfront: parse site file %s: %w", path, err)
	}
	for i, l := range f.Nav {
		if strings.TrimSpace(l.Label) == "" || strings.TrimSpace(l.Href) == "" {
			return fmt.Errorf("pubfront: site file %s: nav[%d] needs a label and an href", path, i)
		}
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Name, f.Name)
	fill(&c.URL, f.URL)
	fill(&c.Description, f.Description)
	fill(&c.Author, f.Author)
	if len(c.Nav) == 0 {
		c.Nav = f.Nav
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithViews replaces the default page templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithContentClient injects a ready Cosmic client instead of building one
// from SiteConfig.Cosmic.
func WithContentClient(c *cms.Client) Option {
	return func(a *App) {
		a.Content = c
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}
