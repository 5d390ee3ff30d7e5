// Package footage provides the stock footage provider client used by asset
// preparation. Lookups are batched with per-item degradation: a failed lookup
// yields an empty clip list and a warning rather than failing the batch.
package footage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultClipsPerScene = 3
)

// Config captures the provider connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ClipsPerScene  int
	TimeoutSeconds int
}

// BatchResult reports the outcome of a footage batch. VideoURLs always has one
// entry per input intent; failed items carry an empty slice (never nil) and a
// corresponding entry in Errors.
type BatchResult struct {
	Success   bool
	VideoURLs [][]string
	Errors    []string
}

// Client talks to a Pexels-style video search endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a footage client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.ClipsPerScene <= 0 {
		cfg.ClipsPerScene = defaultClipsPerScene
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ClipsPerScene:  cfg.ClipsPerScene,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchResponse struct {
	Videos []struct {
		VideoFiles []struct {
			Link string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
	Error string `json:"error"`
}

// Search looks up stock clips for each visual intent in order. perScene caps
// the number of clips per item; zero uses the configured default. It returns
// an error only for configuration problems.
func (c *Client) Search(ctx context.Context, visualIntents []string, perScene int) (BatchResult, error) {
	result := BatchResult{VideoURLs: make([][]string, len(visualIntents))}
	for i := range result.VideoURLs {
		result.VideoURLs[i] = []string{}
	}
	if c.cfg.APIKey == "" {
		return result, errors.New("footage search: api key required")
	}
	if c.cfg.BaseURL == "" {
		return result, errors.New("footage search: base url required")
	}
	if perScene <= 0 {
		perScene = c.cfg.ClipsPerScene
	}

	failures := 0
	for i, intent := range visualIntents {
		urls, err := c.searchOne(ctx, intent, perScene)
		if err != nil {
			failures++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i+1, err))
			continue
		}
		result.VideoURLs[i] = urls
	}
	result.Success = failures == 0
	return result, nil
}

func (c *Client) searchOne(ctx context.Context, intent string, perScene int) ([]string, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		return nil, errors.New("empty visual intent")
	}
	query := url.Values{}
	query.Set("query", intent)
	query.Set("per_page", strconv.Itoa(perScene))
	query.Set("orientation", "portrait")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/videos/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("provider error: %s", decoded.Error)
	}
	if len(decoded.Videos) == 0 {
		return nil, errors.New("no clips matched")
	}

	urls := make([]string, 0, perScene)
	for _, video := range decoded.Videos {
		for _, file := range video.VideoFiles {
			if link := strings.TrimSpace(file.Link); link != "" {
				urls = append(urls, link)
				break
			}
		}
		if len(urls) >= perScene {
			break
		}
	}
	if len(urls) == 0 {
		return nil, errors.New("matched clips had no playable files")
	}
	return urls, nil
}
