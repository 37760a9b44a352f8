// Package browse is the result-browsing engine: it talks to the web API
// and keeps a search session's state: which segments are cached, which
// audio is loaded or loading, what is playing and highlighted.
package browse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_pod/internal/engine"
)

// Client talks to the go_pod web API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an API client. hc may be nil for a default client.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// SearchPage is one page of the JSON search contract.
type SearchPage struct {
	Results    []engine.Result   `json:"results"`
	Pagination engine.Pagination `json:"pagination"`
	Stats      struct {
		Count          int     `json:"count"`
		TotalCount     int     `json:"total_count"`
		DurationMs     float64 `json:"duration_ms"`
		StillSearching bool    `json:"still_searching"`
		RequestID      string  `json:"request_id"`
	} `json:"stats"`
}

func (c *Client) searchURL(query string, opts engine.SearchOptions) string {
	v := url.Values{}
	v.Set("q", query)
	if opts.Regex {
		v.Set("regex", "true")
	}
	if opts.Substring {
		v.Set("substring", "true")
	}
	if opts.MaxResults > 0 {
		v.Set("max_results", strconv.Itoa(opts.MaxResults))
	}
	if opts.Page > 0 {
		v.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Progressive {
		v.Set("progressive", "true")
	}
	return c.baseURL + "/search?" + v.Encode()
}

// Search fetches one page of results as JSON.
func (c *Client) Search(ctx context.Context, query string, opts engine.SearchOptions) (*SearchPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query, opts), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var page SearchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("search decode: %w", err)
	}
	return &page, nil
}

// SearchFragment fetches one page of results as the HTML fragment the
// server renders for browsers.
func (c *Client) SearchFragment(ctx context.Context, query string, opts engine.SearchOptions) (*FragmentPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query, opts), nil)
	if err != nil {
		return nil, fmt.Errorf("build fragment request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fragment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fragment: status %d", resp.StatusCode)
	}
	return ParseFragment(resp.Body)
}

// Segments fetches a batch of segments for one episode. Ordinals the
// server does not know are absent from the reply.
func (c *Client) Segments(ctx context.Context, episode string, indices []int) ([]engine.Segment, error) {
	body, err := json.Marshal(map[string]any{"episode": episode, "indices": indices})
	if err != nil {
		return nil, fmt.Errorf("segments encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/segments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build segments request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("segments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segments: status %d", resp.StatusCode)
	}

	var out struct {
		Segments []engine.Segment `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("segments decode: %w", err)
	}
	return out.Segments, nil
}

// AudioURL returns the playback URL for an episode, positioned with a
// media fragment.
func (c *Client) AudioURL(id string, startSec float64) string {
	return engine.AudioFragmentURL(c.baseURL, id, startSec)
}

// ProbeAudio checks that the episode's audio is servable.
func (c *Client) ProbeAudio(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/audio/"+id, nil)
	if err != nil {
		return fmt.Errorf("build audio probe: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("audio probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio probe: status %d", resp.StatusCode)
	}
	return nil
}

// LogTiming reports a client-side timing event. Failures are logged and
// swallowed; timing reporting must never break browsing.
func (c *Client) LogTiming(ctx context.Context, event string, durationMs float64, requestID string) {
	payload, err := json.Marshal(map[string]any{
		"event_type": event,
		"data": map[string]any{
			"duration_ms": durationMs,
			"request_id":  requestID,
		},
	})
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/log-timing", bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("browse: timing report failed", slog.Any("error", err))
		return
	}
	_ = resp.Body.Close()
}
