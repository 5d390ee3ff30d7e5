package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelsmith/internal/config"
)

func TestPublishSendsTitleAndBody(t *testing.T) {
	var gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	service := NewService(config.Notifications{NtfyTopic: server.URL}, nil)
	if !service.Enabled() {
		t.Fatal("service should be enabled")
	}
	service.RenderCompleted(context.Background(), "ocean currents", "https://cdn.example/final.mp4")

	if gotTitle != "Render complete" {
		t.Errorf("title %q", gotTitle)
	}
	if !strings.Contains(gotBody, "ocean currents") || !strings.Contains(gotBody, "final.mp4") {
		t.Errorf("body %q", gotBody)
	}
}

func TestUnconfiguredServiceIsNoop(t *testing.T) {
	service := NewService(config.Notifications{}, nil)
	if service.Enabled() {
		t.Fatal("service without topic must be disabled")
	}
	// Must not panic or attempt network calls.
	service.RenderStarted(context.Background(), "x")
	service.RenderFailed(context.Background(), "x", "reason")
}
