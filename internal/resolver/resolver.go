// Package resolver talks to the external audio resolution service: given
// a text query it finds playable sources, and given a source id it
// returns a direct audio URL. Lookups can take seconds, so callers run
// them off the event path with a context deadline.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrNotFound means the source id does not exist.
	ErrNotFound = errors.New("resolver: source not found")

	// ErrUnavailable means the source exists but can never be played
	// (removed, private, age-restricted). Retrying is pointless.
	ErrUnavailable = errors.New("resolver: source unavailable")
)

// Fatal reports whether err is permanent. Anything else is assumed
// transient and may be retried.
func Fatal(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable)
}

// SearchResult is one row returned to the requesting client.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
	Duration  string `json:"duration"`
}

type Resolver interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
	AudioURL(ctx context.Context, sourceID string) (string, error)
}

// HTTPResolver is the production implementation, a thin client for the
// resolver service's REST surface.
type HTTPResolver struct {
	base   string
	client *http.Client
}

func NewHTTP(baseURL string) *HTTPResolver {
	return &HTTPResolver{
		base: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (h *HTTPResolver) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u := fmt.Sprintf("%s/search?q=%s", h.base, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver: search returned status %d", resp.StatusCode)
	}

	var results []SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("resolver: decode search results: %w", err)
	}

	return results, nil
}

func (h *HTTPResolver) AudioURL(ctx context.Context, sourceID string) (string, error) {
	u := fmt.Sprintf("%s/resolve/%s", h.base, url.PathEscape(sourceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolver: resolve request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrNotFound
	case http.StatusForbidden, http.StatusGone, http.StatusUnavailableForLegalReasons:
		return "", ErrUnavailable
	default:
		return "", fmt.Errorf("resolver: resolve returned status %d", resp.StatusCode)
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("resolver: decode resolve response: %w", err)
	}

	if body.URL == "" {
		return "", ErrNotFound
	}
	return body.URL, nil
}
