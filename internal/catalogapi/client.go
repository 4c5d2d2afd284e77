// Package catalogapi implements product.Catalog over a DummyJSON-compatible
// REST API.
package catalogapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/raj-engineer/EcomApp/internal/domain/product"
)

// DefaultBaseURL is the public DummyJSON service.
const DefaultBaseURL = "https://dummyjson.com"

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

// Client talks to the remote catalog. It never retries.
type Client struct {
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	lg      *zap.Logger

	httpClient *http.Client
	tp         trace.TracerProvider
	mp         metric.MeterProvider

	tracer   trace.Tracer
	requests metric.Int64Counter
}

var _ product.Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero means no client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit throttles outgoing requests to r per second with the given
// burst. Callers wait for a token; nothing is dropped.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

func WithLogger(lg *zap.Logger) Option {
	return func(c *Client) { c.lg = lg }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tp = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) { c.mp = mp }
}

// New creates a Client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported base url scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		lg:      zap.NewNop(),
		tp:      otel.GetTracerProvider(),
		mp:      otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(c.tp),
				otelhttp.WithMeterProvider(c.mp),
			),
		}
	}

	c.tracer = c.tp.Tracer("github.com/raj-engineer/EcomApp/internal/catalogapi")
	c.requests, err = c.mp.Meter("github.com/raj-engineer/EcomApp/internal/catalogapi").Int64Counter(
		"catalog.client.requests",
		metric.WithDescription("Remote catalog requests by operation and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create request counter")
	}
	return c, nil
}

// List fetches one page of the unfiltered listing.
func (c *Client) List(ctx context.Context, limit, skip int) (*product.Page, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	return c.page(ctx, "list", "/products", q)
}

// Search runs a full-text query.
func (c *Client) Search(ctx context.Context, query string) (*product.Page, error) {
	q := url.Values{}
	q.Set("q", query)
	return c.page(ctx, "search", "/products/search", q)
}

// ByCategory fetches every product in category.
func (c *Client) ByCategory(ctx context.Context, category string) (*product.Page, error) {
	return c.page(ctx, "category", "/products/category/"+url.PathEscape(category), nil)
}

// Categories lists category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	const op = "categories"
	body, err := c.get(ctx, op, "/products/categories", nil)
	if err != nil {
		return nil, err
	}
	cats, err := decodeCategories(body)
	if err != nil {
		return nil, &product.NetworkError{Op: op, Err: errors.Wrap(err, "decode")}
	}
	return cats, nil
}

// Get fetches one product. A 404 maps to product.ErrNotFound.
func (c *Client) Get(ctx context.Context, id int) (*product.Product, error) {
	const op = "get"
	body, err := c.get(ctx, op, "/products/"+strconv.Itoa(id), nil)
	if err != nil {
		var netErr *product.NetworkError
		if errors.As(err, &netErr) && netErr.Status == http.StatusNotFound {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	p, err := decodeProductBytes(body)
	if err != nil {
		return nil, &product.NetworkError{Op: op, Err: errors.Wrap(err, "decode")}
	}
	return p, nil
}

func (c *Client) page(ctx context.Context, op, path string, q url.Values) (*product.Page, error) {
	body, err := c.get(ctx, op, path, q)
	if err != nil {
		return nil, err
	}
	p, err := decodePage(body)
	if err != nil {
		return nil, &product.NetworkError{Op: op, Err: errors.Wrap(err, "decode")}
	}
	return p, nil
}

// get performs a GET and returns the body of a 2xx response. Every failure is
// a *product.NetworkError.
func (c *Client) get(ctx context.Context, op, path string, q url.Values) (_ []byte, rerr error) {
	ctx, span := c.tracer.Start(ctx, "catalog."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("catalog.path", path)),
	)
	status := 0
	defer func() {
		outcome := "ok"
		if rerr != nil {
			outcome = "error"
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
			attribute.Int("status", status),
		))
		span.End()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &product.NetworkError{Op: op, Err: errors.Wrap(err, "rate limit")}
		}
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, &product.NetworkError{Op: op, Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.lg.Warn("Catalog request failed", zap.String("op", op), zap.String("url", u), zap.Error(err))
		return nil, &product.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &product.NetworkError{Op: op, Status: status, Err: errors.Wrap(err, "read body")}
	}
	c.lg.Debug("Catalog request",
		zap.String("op", op),
		zap.String("url", u),
		zap.Int("status", status),
		zap.Duration("took", time.Since(start)),
	)
	if status < 200 || status > 299 {
		return nil, &product.NetworkError{Op: op, Status: status, Err: errors.Errorf("unexpected status %s", resp.Status)}
	}
	return body, nil
}
