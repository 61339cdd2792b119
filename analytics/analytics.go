// Package analytics counts page views server-side without cookies or
// client scripts. IP addresses are stored only as salted hashes and Do Not
// Track is honored.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// salt holds the per-installation random salt for IP hashing.
var salt struct {
	once  sync.Once
	value string
}

// InitSalt loads or generates the persistent hashing salt. Call it once at
// startup before any views are recorded.
func InitSalt(store *Store) error {
	var initErr error
	salt.once.Do(func() {
		s, err := store.GetSetting("hash_salt")
		if err != nil {
			initErr = fmt.Errorf("read hash salt: %w", err)
			return
		}
		if s == "" {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				initErr = fmt.Errorf("generate salt: %w", err)
				return
			}
			s = hex.EncodeToString(b)
			if err := store.SetSetting("hash_salt", s); err != nil {
				initErr = fmt.Errorf("store hash salt: %w", err)
				return
			}
		}
		salt.value = s
	})
	return initErr
}

// View is one counted page view by a person.
type View struct {
	VisitorID string
	IPHash    string
	Browser   string
	OS        string
	Device    string
	Path      string
	Referrer  string
	Timestamp time.Time
}

// BotView is one page view by a crawler.
type BotView struct {
	BotName   string
	IPHash    string
	UserAgent string
	Path      string
	Timestamp time.Time
}

// Stats is the aggregate served to previewers.
type Stats struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	UniqueVisitors int             `json:"unique_visitors"`
	TotalViews     int             `json:"total_views"`
	BotViews       int             `json:"bot_views"`
	TopPages       []PageStat      `json:"top_pages"`
	Browsers       []DimensionStat `json:"browsers"`
	Devices        []DimensionStat `json:"devices"`
	Referrers      []DimensionStat `json:"referrers"`
	TopBots        []DimensionStat `json:"top_bots"`
	DailyViews     []DailyView     `json:"daily_views"`
}

type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type DailyView struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

func hash16(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(salt.value + strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// HashIP creates a salted hash of an IP address.
func HashIP(ip string) string {
	return hash16(ip)
}

// VisitorID derives a daily-rotating anonymous visitor ID from IP and
// User-Agent, so the same person is not linkable across days.
func VisitorID(ip, userAgent string, day time.Time) string {
	return hash16(ip, userAgent, day.UTC().Format("2006-01-02"))
}

// ParseUserAgent extracts browser, OS, and device from a User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// More specific tokens first: Edge and Opera UAs also contain "chrome".
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android before Linux.
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	// iPad UAs say "mobile" too.
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

// knownBots maps User-Agent tokens to display names, most specific first.
var knownBots = []struct{ token, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"duckduckbot", "DuckDuckBot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"gptbot", "GPTBot"},
	{"slurp", "Yahoo Slurp"},
}

var genericBotTokens = []string{"bot", "crawler", "spider", "crawl", "scrape", "headless"}

// IsBot reports whether the User-Agent is likely a crawler. An empty
// User-Agent counts as a bot.
func IsBot(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	return BotName(ua) != ""
}

// BotName names the crawler behind ua, or returns "" for browsers.
func BotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, b := range knownBots {
		if strings.Contains(ua, b.token) {
			return b.name
		}
	}
	for _, tok := range genericBotTokens {
		if strings.Contains(ua, tok) {
			return "Other Bot"
		}
	}
	return ""
}

var searchEngines = []struct{ token, name string }{
	{"google.", "Google"},
	{"bing.", "Bing"},
	{"duckduckgo.", "DuckDuckGo"},
	{"yahoo.", "Yahoo"},
	{"github.", "GitHub"},
}

// CleanReferrer reduces a referrer URL to a source name. Same-site
// referrers (host equal to ownHost) count as "Direct".
func CleanReferrer(ref, ownHost string) string {
	if ref == "" {
		return "Direct"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "Other"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if ownHost != "" && host == strings.TrimPrefix(strings.ToLower(ownHost), "www.") {
		return "Direct"
	}
	for _, se := range searchEngines {
		if strings.Contains(host, se.token) {
			return se.name
		}
	}
	return host
}
