// Package checkers provides health.Check implementations for external dependencies.
package checkers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPChecker reports unhealthy when a GET fails or answers 5xx.
type HTTPChecker struct {
	url    string
	name   string
	client *resty.Client
}

// NewHTTPChecker checks url under name (url when name is empty).
func NewHTTPChecker(url, name string) *HTTPChecker {
	return NewHTTPCheckerWithClient(url, name, resty.New().SetTimeout(10*time.Second))
}

// NewHTTPCheckerWithClient uses a caller supplied resty client.
func NewHTTPCheckerWithClient(url, name string, client *resty.Client) *HTTPChecker {
	if name == "" {
		name = url
	}
	return &HTTPChecker{url: url, name: name, client: client}
}

func (h *HTTPChecker) Name() string { return h.name }

func (h *HTTPChecker) Check(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get(h.url)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("unhealthy status code: %d", resp.StatusCode())
	}
	return nil
}
