// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"context"
	"log/slog"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/store"
)

// NewConfig returns a validated config rooted in a per-test temp directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base + "/data"
	cfg.Paths.LogDir = base + "/logs"
	cfg.Speech.APIKey = "test-speech-key"
	cfg.Footage.APIKey = "test-footage-key"
	cfg.LLM.APIKey = "test-llm-key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a store against the test config and closes it when the
// test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *store.Store {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// NewLogger returns a logger that discards all records.
func NewLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return logging.NewNop()
}

// SeedSpec inserts an approved three-scene specification and returns it.
func SeedSpec(t *testing.T, st *store.Store) *store.SceneSpec {
	t.Helper()
	spec := &store.SceneSpec{
		UserID:         "user-1",
		Title:          "ocean currents explained",
		Description:    "a primer on thermohaline circulation",
		TargetDuration: 300,
		Scenes: []store.SceneDescriptor{
			{Order: 1, VoiceoverText: "intro", VisualIntent: "sunrise over ocean"},
			{Order: 2, VoiceoverText: "middle", VisualIntent: "deep sea currents"},
			{Order: 3, VoiceoverText: "outro", VisualIntent: "sunset over ocean"},
		},
	}
	if err := st.CreateSpec(context.Background(), spec); err != nil {
		t.Fatalf("create spec: %v", err)
	}
	if err := st.ApproveSpec(context.Background(), spec.ID); err != nil {
		t.Fatalf("approve spec: %v", err)
	}
	spec.Status = store.SpecStatusApproved
	return spec
}
