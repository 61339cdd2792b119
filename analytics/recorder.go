package analytics

import (
	"context"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Input limits for recorded values.
const (
	maxPathLen      = 2048
	maxUserAgentLen = 512
)

// RecorderConfig configures Recorder.
type RecorderConfig struct {
	// Skipper selects requests that are never counted.
	Skipper middleware.Skipper
}

// Recorder returns middleware that counts successful GET page loads.
// Requests carrying "DNT: 1" are not recorded.
func Recorder(store *Store, cfg RecorderConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			req := c.Request()
			status := c.Response().Status
			if req.Method != "GET" || status < 200 || status > 299 {
				return nil
			}
			if req.Header.Get("DNT") == "1" || cfg.Skipper(c) {
				return nil
			}

			ua := truncate(req.UserAgent(), maxUserAgentLen)
			path := truncate(req.URL.Path, maxPathLen)
			ip := c.RealIP()
			now := time.Now().UTC()
			ctx := context.WithoutCancel(req.Context())

			if IsBot(ua) {
				name := BotName(ua)
				if name == "" {
					name = "Unknown"
				}
				err := store.SaveBotView(ctx, BotView{
					BotName:   name,
					IPHash:    HashIP(ip),
					UserAgent: ua,
					Path:      path,
					Timestamp: now,
				})
				if err != nil {
					c.Logger().Errorf("record bot view: %v", err)
				}
				return nil
			}

			browser, os, device := ParseUserAgent(ua)
			err := store.SaveView(ctx, View{
				VisitorID: VisitorID(ip, ua, now),
				IPHash:    HashIP(ip),
				Browser:   browser,
				OS:        os,
				Device:    device,
				Path:      path,
				Referrer:  CleanReferrer(req.Referer(), hostOf(req.Host)),
				Timestamp: now,
			})
			if err != nil {
				c.Logger().Errorf("record view: %v", err)
			}
			return nil
		}
	}
}

func hostOf(hostport string) string {
	u := url.URL{Host: hostport}
	return u.Hostname()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
