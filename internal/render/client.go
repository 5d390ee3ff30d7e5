// Package render implements the HTTP client for the isolated render worker.
// The worker is the only place generated presentation code ever executes;
// this package just submits jobs and reads status.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"
)

const defaultTimeout = 30 * time.Second

// ErrWorkerUnavailable marks a dispatch attempt that failed because the worker
// process is not running (connection refused). Callers surface this plainly
// instead of a raw transport error.
var ErrWorkerUnavailable = errors.New("render worker unavailable")

// JobState is the worker-reported lifecycle state of a render job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRendering JobState = "rendering"
	JobComplete  JobState = "complete"
	JobFailed    JobState = "failed"
)

// Terminal reports whether the worker will make no further progress.
func (s JobState) Terminal() bool {
	return s == JobComplete || s == JobFailed
}

// OutputConfig fixes the render output dimensions and length.
type OutputConfig struct {
	FPS              int `json:"fps"`
	Width            int `json:"width"`
	Height           int `json:"height"`
	DurationInFrames int `json:"durationInFrames"`
}

// Job is a render submission: validated code plus the output configuration.
type Job struct {
	ID     string       `json:"jobId"`
	Code   string       `json:"code"`
	Output OutputConfig `json:"outputConfig"`
}

// JobStatus is the worker's answer to a status query.
type JobStatus struct {
	State     JobState `json:"status"`
	ResultURL string   `json:"resultUrl"`
	Error     string   `json:"error"`
}

// Config captures the worker connection settings.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client submits render jobs to the worker and polls their status.
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

// NewClient constructs a render worker client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error"`
}

// Submit posts a job to the worker. A refused connection returns an error
// wrapping ErrWorkerUnavailable; Submit never retries on its own.
func (c *Client) Submit(ctx context.Context, job Job) error {
	if c.cfg.BaseURL == "" {
		return errors.New("render submit: worker base url required")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("render submit: job id required")
	}
	if strings.TrimSpace(job.Code) == "" {
		return errors.New("render submit: code payload required")
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("render submit: encode job: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/render", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("render submit: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("%w: %s", ErrWorkerUnavailable, c.cfg.BaseURL)
		}
		return fmt.Errorf("render submit: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("render submit: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("render submit: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded submitResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("render submit: decode response: %w", err)
	}
	if !decoded.Accepted {
		if decoded.Error != "" {
			return fmt.Errorf("render submit: worker rejected job: %s", decoded.Error)
		}
		return errors.New("render submit: worker rejected job")
	}
	return nil
}

// Status queries the worker for the current state of a job.
func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	if c.cfg.BaseURL == "" {
		return status, errors.New("render status: worker base url required")
	}
	if strings.TrimSpace(jobID) == "" {
		return status, errors.New("render status: job id required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/status/"+jobID, nil)
	if err != nil {
		return status, fmt.Errorf("render status: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status, fmt.Errorf("render status: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return status, fmt.Errorf("render status: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("render status: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("render status: decode response: %w", err)
	}
	switch status.State {
	case JobQueued, JobRendering, JobComplete, JobFailed:
	default:
		return status, fmt.Errorf("render status: unknown state %q", status.State)
	}
	return status, nil
}
