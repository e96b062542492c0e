// Package upstream is the HTTP client for the remote product catalog.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/storefront/internal/domain/catalog"
	"github.com/okian/storefront/internal/domain/product"
	"github.com/okian/storefront/pkg/logger"
	"github.com/okian/storefront/pkg/metrics"
	"github.com/okian/storefront/pkg/resilience"
)

const (
	defaultBaseURL = "https://fakestoreapi.com"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// Endpoint labels used in metrics.
const (
	endpointProducts   = "products"
	endpointProduct    = "product"
	endpointCategories = "categories"
	endpointCategory   = "category"
)

var _ catalog.Source = (*Client)(nil)

// Client talks to a fakestoreapi-compatible catalog.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	retry   resilience.Config
	log     logger.Logger
}

// New creates a client with defaults overridden by opts.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		retry:   resilience.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = logger.Get().Named("upstream")
	}
	return c
}

// BaseURL returns the catalog root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Products lists every product.
func (c *Client) Products(ctx context.Context) ([]product.Product, error) {
	var out []product.Product
	if err := c.getJSON(ctx, endpointProducts, "/products", &out); err != nil {
		return nil, listError(err)
	}
	return out, nil
}

// Product fetches one product. Unknown ids yield ErrNotFound; the public
// catalog answers those with 200 and an empty body.
func (c *Client) Product(ctx context.Context, id int) (product.Product, error) {
	var p *product.Product
	err := c.getJSON(ctx, endpointProduct, "/products/"+strconv.Itoa(id), &p)
	switch {
	case errors.Is(err, errEmptyBody):
		return product.Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	case err != nil:
		return product.Product{}, err
	case p == nil:
		return product.Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return *p, nil
}

// Categories lists category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, endpointCategories, "/products/categories", &out); err != nil {
		return nil, listError(err)
	}
	return out, nil
}

// ProductsByCategory lists the products of one category.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]product.Product, error) {
	var out []product.Product
	if err := c.getJSON(ctx, endpointCategory, "/products/category/"+url.PathEscape(category), &out); err != nil {
		return nil, listError(err)
	}
	if out == nil {
		out = []product.Product{}
	}
	return out, nil
}

func listError(err error) error {
	if errors.Is(err, errEmptyBody) {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	cfg := c.retry
	cfg.OnRetry = func(int, error) { metrics.RecordCatalogRetry(endpoint) }

	err := resilience.Retry(ctx, "catalog "+endpoint, cfg, func(ctx context.Context) error {
		return c.once(ctx, path, out)
	})

	ms := float64(time.Since(start).Microseconds()) / 1000
	switch {
	case err == nil:
		metrics.RecordCatalogFetch(endpoint, metrics.OutcomeSuccess, ms)
	case errors.Is(err, ErrNotFound) || errors.Is(err, errEmptyBody):
		metrics.RecordCatalogFetch(endpoint, metrics.OutcomeNotFound, ms)
	default:
		metrics.RecordCatalogFetch(endpoint, metrics.OutcomeFailure, ms)
		metrics.RecordErrorByComponent("upstream", endpoint)
		c.log.Error(ctx, "catalog request failed",
			logger.String("path", path),
			logger.Float64("elapsed_ms", ms),
			logger.Error(err),
		)
	}
	return err
}

// once performs a single attempt. Errors that retrying cannot fix are
// marked permanent.
func (c *Client) once(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return resilience.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return resilience.Permanent(ctx.Err())
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resilience.Permanent(fmt.Errorf("%w: %s", ErrNotFound, path))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUpstream, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return resilience.Permanent(fmt.Errorf("%w: %s", ErrUpstream, resp.Status))
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return resilience.Permanent(errEmptyBody)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resilience.Permanent(fmt.Errorf("%w: decode %s: %w", ErrUpstream, path, err))
	}
	return nil
}
