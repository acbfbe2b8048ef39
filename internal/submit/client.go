// Package submit posts problem reports to the spreadsheet webhook.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/segnala/internal/report"
)

// ErrNoEndpoint is returned when no webhook URL is configured.
var ErrNoEndpoint = errors.New("webhook url is not configured")

// Error is a network-level submission failure.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("submit report to %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client posts each report exactly once. The endpoint's response is opaque:
// it is drained but never inspected, so any completed exchange is success.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client for the webhook url.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Submit sends r as a JSON body in a single POST.
func (c *Client) Submit(ctx context.Context, r report.ProblemReport) error {
	if c.url == "" {
		return ErrNoEndpoint
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{URL: redact(c.url), Err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if c.logger != nil {
		c.logger.Info("report submitted", "odl", r.ODL, "http_status", resp.StatusCode)
	}
	return nil
}

// redact drops the path and query, which carry the deployment secret.
func redact(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "webhook"
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host
}
