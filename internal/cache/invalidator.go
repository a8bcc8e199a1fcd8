// Package cache purges edge-cached roster listings after mutations.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Invalidator drops cached responses that include an activity's roster.
type Invalidator interface {
	Invalidate(ctx context.Context, activity string) error
}

// NoopInvalidator is used when no edge cache sits in front of the service.
type NoopInvalidator struct{}

// Invalidate performs no action.
func (NoopInvalidator) Invalidate(context.Context, string) error { return nil }

// PurgeRequest is the body sent to the edge purge endpoint.
type PurgeRequest struct {
	Activity string   `json:"activity"`
	Paths    []string `json:"paths"`
}

// PurgePaths lists the cached paths affected by a change to activity. The listing is
// the only cached representation of a roster.
func PurgePaths(activity string) []string {
	return []string{"/activities", "/activities/" + url.PathEscape(activity)}
}

// HTTPInvalidator posts purge requests to an edge cache.
type HTTPInvalidator struct {
	client   *http.Client
	endpoint string
	token    string
}

// NewHTTPInvalidator constructs an HTTPInvalidator.
func NewHTTPInvalidator(endpoint, token string, timeout time.Duration) *HTTPInvalidator {
	return &HTTPInvalidator{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
	}
}

// Invalidate asks the edge to drop every cached path that embeds activity's roster.
func (h *HTTPInvalidator) Invalidate(ctx context.Context, activity string) error {
	body, err := json.Marshal(PurgeRequest{Activity: activity, Paths: PurgePaths(activity)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("purge %q: %w", activity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &InvalidationError{Activity: activity, Status: resp.StatusCode}
	}
	return nil
}

// InvalidationError reports a purge the edge refused.
type InvalidationError struct {
	Activity string
	Status   int
}

func (e *InvalidationError) Error() string {
	return fmt.Sprintf("purge %q rejected: %d %s", e.Activity, e.Status, http.StatusText(e.Status))
}
