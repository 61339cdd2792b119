// Package pubfront is a server-rendered blog front end for a Cosmic bucket,
// built with Go, Echo, and templ.
//
// Every page is assembled from Cosmic queries run through the cms package's
// safe wrappers: missing content renders as a 404 or an empty list, and any
// other failure renders the error page. Nothing is stored locally.
package pubfront

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eringen/pubfront/analytics"
	"github.com/eringen/pubfront/cms"
)

// App is the central pubfront application. It wires together the content
// client, handlers, middleware, and templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Content  *cms.Client
	Views    ViewFuncs
	Registry *prometheus.Registry

	content        content
	previewLimiter *LoginLimiter
	analyticsStore *analytics.Store
	stopCleanup    func()
	customRoutes   []func(*App)
	staticDir      string
	ready          bool
}

// New creates a new pubfront App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     DefaultViews(),
		Registry:  prometheus.NewRegistry(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	a.Views = a.Views.withDefaults()

	return a
}

// Init builds the content client and analytics store and registers
// middleware and routes. Start calls it; tests call it to serve requests
// without listening.
func (a *App) Init() error {
	if a.ready {
		return nil
	}

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if a.Content == nil {
		client, err := cms.New(a.Config.Cosmic,
			cms.WithLogger(a.Echo.Logger),
			cms.WithBreaker(cms.DefaultBreakerConfig()),
			cms.WithMetrics(cms.NewMetrics(a.Registry)),
		)
		if err != nil {
			return fmt.Errorf("pubfront: content client: %w", err)
		}
		a.Content = client
	}
	a.content = content{client: a.Content}

	a.previewLimiter = NewLoginLimiter(5, defaultLimiterWindow)

	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("pubfront: init analytics: %w", err)
		}
		a.analyticsStore = store
		if err := analytics.InitSalt(store); err != nil {
			return fmt.Errorf("pubfront: init analytics salt: %w", err)
		}
		stop, err := store.StartCleanupScheduler(a.Config.AnalyticsRetentionDays, analytics.DailyPurge, a.Echo.Logger)
		if err != nil {
			return fmt.Errorf("pubfront: schedule analytics purge: %w", err)
		}
		a.stopCleanup = stop
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded stylesheet first, then the site's own static directory.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/style.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.Static("/public", a.staticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.Registry}))

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/posts", handleHomeRedirect)
	e.GET("/posts/", handleHomeRedirect)
	e.GET("/posts/:slug/", a.handlePost)
	e.GET("/authors/:slug/", a.handleAuthor)
	e.GET("/categories/:slug/", a.handleCategory)

	e.GET("/preview/", a.handlePreview)
	e.POST("/preview/login/", a.handlePreviewLogin)
	e.POST("/preview/logout/", handlePreviewLogout)

	if a.analyticsStore != nil {
		stats := analytics.NewHandler(a.analyticsStore)
		e.GET("/preview/stats/", stats.Stats, requirePreview)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.previewLimiter != nil {
		a.previewLimiter.Close()
	}
	if a.analyticsStore != nil {
		return a.analyticsStore.Close()
	}
	return nil
}
