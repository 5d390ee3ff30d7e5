// Package notifications pushes render lifecycle events to an ntfy topic.
// The service is a silent no-op when no topic is configured.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
)

const defaultRequestTimeout = 10 * time.Second

// Service publishes push notifications for render lifecycle events.
type Service struct {
	topicURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewService constructs a notification service from config. An empty topic
// disables publishing entirely.
func NewService(cfg config.Notifications, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := defaultRequestTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	return &Service{
		topicURL:   strings.TrimSpace(cfg.NtfyTopic),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "notifications"),
	}
}

// Enabled reports whether a topic is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.topicURL != ""
}

// RenderStarted announces that a render was dispatched.
func (s *Service) RenderStarted(ctx context.Context, title string) {
	s.publish(ctx, "Render started", fmt.Sprintf("Rendering %q", title), "hourglass_flowing_sand")
}

// RenderCompleted announces a finished render with its result location.
func (s *Service) RenderCompleted(ctx context.Context, title, resultURL string) {
	s.publish(ctx, "Render complete", fmt.Sprintf("%q is ready: %s", title, resultURL), "white_check_mark")
}

// RenderFailed announces a failed render with the failure reason.
func (s *Service) RenderFailed(ctx context.Context, title, reason string) {
	s.publish(ctx, "Render failed", fmt.Sprintf("%q failed: %s", title, reason), "x")
}

func (s *Service) publish(ctx context.Context, title, message, tags string) {
	if !s.Enabled() {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(message))
	if err != nil {
		s.logger.WarnContext(ctx, "build notification request failed", logging.Error(err))
		return
	}
	req.Header.Set("Title", title)
	req.Header.Set("Tags", tags)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "notification delivery failed", logging.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.WarnContext(ctx, "notification rejected",
			logging.Int("status", resp.StatusCode))
	}
}
