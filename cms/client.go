// Package cms reads posts, authors and categories from a Cosmic bucket.
//
// Client speaks the Cosmic REST API. Fetch and FetchOne wrap it so that
// every page sees exactly three outcomes: data, not found (an empty slice or
// an absent object), or ErrFetchFailed.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	EnvironmentProduction = "production"
	EnvironmentStaging    = "staging"

	// DefaultEnvironment is the API environment the site is deployed against.
	DefaultEnvironment = EnvironmentStaging

	maxResponseBytes = 16 << 20
	tracerName       = "github.com/eringen/pubfront/cms"
)

var apiBaseURLs = map[string]string{
	EnvironmentProduction: "https://api.cosmicjs.com/v3",
	EnvironmentStaging:    "https://api.cosmic-staging.com/v3",
}

// Logger receives the detail of every failed query. echo.Logger and the
// gommon logger satisfy it.
type Logger interface {
	Errorf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Config holds the bucket connection parameters.
type Config struct {
	BucketSlug  string // required
	ReadKey     string // required
	WriteKey    string // required
	Environment string // "staging" (default) or "production"
	BaseURL     string // overrides the environment's API URL
	HTTPClient  *http.Client
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.BucketSlug) == "" {
		missing = append(missing, "bucket slug")
	}
	if strings.TrimSpace(c.ReadKey) == "" {
		missing = append(missing, "read key")
	}
	if strings.TrimSpace(c.WriteKey) == "" {
		missing = append(missing, "write key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	if c.BaseURL == "" {
		if _, ok := apiBaseURLs[c.Environment]; !ok {
			return fmt.Errorf("cms: unknown environment %q", c.Environment)
		}
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets where failure details are written.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBreaker puts a circuit breaker in front of the API.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) { c.breakerCfg = &cfg }
}

// WithMetrics records per-query counters and latencies.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracerProvider overrides the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// Client is a handle to one Cosmic bucket. It holds no per-call state and is
// safe for concurrent use. It does not retry or cache.
type Client struct {
	bucket   string
	readKey  string
	writeKey string
	env      string
	baseURL  string
	http     *http.Client

	logger     Logger
	breakerCfg *BreakerConfig
	breaker    *breaker
	metrics    *Metrics
	tracer     trace.Tracer
}

// New validates cfg and returns a client. Every missing required setting is
// named in the returned error.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		base = apiBaseURLs[cfg.Environment]
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	c := &Client{
		bucket:   cfg.BucketSlug,
		readKey:  cfg.ReadKey,
		writeKey: cfg.WriteKey,
		env:      cfg.Environment,
		baseURL:  strings.TrimSuffix(base, "/"),
		http:     hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New("cms")
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.breakerCfg != nil {
		c.breaker = newBreaker(*c.breakerCfg, c.logger)
	}
	return c, nil
}

// MustNew is New for process startup: it panics on invalid configuration.
func MustNew(cfg Config, opts ...Option) *Client {
	c, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Bucket returns the bucket slug.
func (c *Client) Bucket() string { return c.bucket }

// Environment returns the API environment tag.
func (c *Client) Environment() string { return c.env }

// Logger returns the logger failures are reported to.
func (c *Client) Logger() Logger { return c.logger }

// BreakerOpen reports whether queries are currently short-circuited.
func (c *Client) BreakerOpen() bool {
	return c.breaker.state() == gobreaker.StateOpen
}

// ListResponse is the {"objects": [...]} envelope.
type ListResponse[T any] struct {
	Objects []T `json:"objects"`
	Total   int `json:"total"`
}

// ObjectResponse is the {"object": {...}} envelope.
type ObjectResponse[T any] struct {
	Object T `json:"object"`
}

// Find runs q and returns the raw objects envelope. Errors are returned as
// they happen: *StatusError for API answers, transport or decode errors
// otherwise.
func (c *Client) Find(ctx context.Context, q Query) (*ListResponse[json.RawMessage], error) {
	return c.query(ctx, "find", q)
}

// FindOne runs q limited to one object. No match is reported as a 404
// StatusError whether Cosmic answers 404 or an empty list.
func (c *Client) FindOne(ctx context.Context, q Query) (*ObjectResponse[json.RawMessage], error) {
	q.Limit = 1
	list, err := c.query(ctx, "find_one", q)
	if err != nil {
		return nil, err
	}
	return &ObjectResponse[json.RawMessage]{Object: list.Objects[0]}, nil
}

func (c *Client) query(ctx context.Context, op string, q Query) (*ListResponse[json.RawMessage], error) {
	ctx, span := c.tracer.Start(ctx, "cms."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cms.bucket", c.bucket),
			attribute.String("cms.type", string(q.Type)),
			attribute.Int("cms.depth", q.Depth),
		))
	defer span.End()

	start := time.Now()
	var list *ListResponse[json.RawMessage]
	err := c.breaker.run(func() error {
		var err error
		list, err = c.get(ctx, q)
		if err == nil && op == "find_one" && len(list.Objects) == 0 {
			err = &StatusError{Status: http.StatusNotFound, Message: "no object matched"}
		}
		return err
	})
	outcome := Classify(err)
	c.metrics.observe(q.Type, op, outcome, time.Since(start))

	span.SetAttributes(attribute.String("cms.outcome", outcome.String()))
	if outcome == OutcomeFailure {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) get(ctx context.Context, q Query) (*ListResponse[json.RawMessage], error) {
	v, err := q.values()
	if err != nil {
		return nil, err
	}
	v.Set("read_key", c.readKey)
	endpoint := c.baseURL + "/buckets/" + url.PathEscape(c.bucket) + "/objects?" + v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("cms: build request: %w", redact(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: get %s: %w", q.Type, redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("cms: read %s response: %w", q.Type, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, body)
	}

	var list ListResponse[json.RawMessage]
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("cms: decode %s response: %w", q.Type, err)
	}
	return &list, nil
}

// redact drops the request URL, which carries the read key, from transport
// errors so it never reaches a log line.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
