// Package speech provides the text-to-speech provider client used by asset
// preparation. Synthesis is batched with per-item degradation: a failed item
// yields an empty audio URL and a warning rather than failing the batch.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Config captures the provider connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Voice          string
	TimeoutSeconds int
}

// BatchResult reports the outcome of a synthesis batch. AudioURLs always has
// one entry per input text; failed items carry an empty string and a
// corresponding entry in Errors.
type BatchResult struct {
	Success   bool
	AudioURLs []string
	Errors    []string
}

// Client talks to an ElevenLabs-style synthesis endpoint.
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

// NewClient constructs a synthesis client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Voice:          strings.TrimSpace(cfg.Voice),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type synthesizeResponse struct {
	AudioURL string `json:"audio_url"`
	Error    string `json:"error"`
}

// Synthesize produces audio for each text in order. It returns an error only
// for configuration problems; provider failures degrade per item.
func (c *Client) Synthesize(ctx context.Context, texts []string) (BatchResult, error) {
	result := BatchResult{AudioURLs: make([]string, len(texts))}
	if c.cfg.APIKey == "" {
		return result, errors.New("speech synthesize: api key required")
	}
	if c.cfg.BaseURL == "" {
		return result, errors.New("speech synthesize: base url required")
	}

	failures := 0
	for i, text := range texts {
		url, err := c.synthesizeOne(ctx, text)
		if err != nil {
			failures++
			result.Errors = append(result.Errors, fmt.Sprintf("item %d: %v", i+1, err))
			continue
		}
		result.AudioURLs[i] = url
	}
	result.Success = failures == 0
	return result, nil
}

func (c *Client) synthesizeOne(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty voiceover text")
	}
	encoded, err := json.Marshal(synthesizeRequest{Text: text, Voice: c.cfg.Voice})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/synthesize", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded synthesizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("provider error: %s", decoded.Error)
	}
	if strings.TrimSpace(decoded.AudioURL) == "" {
		return "", errors.New("provider returned no audio url")
	}
	return decoded.AudioURL, nil
}
