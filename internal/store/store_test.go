package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reelsmith/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}

func mustOpen(t *testing.T) *Store {
	t.Helper()
	s, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleScenes(n int) []SceneDescriptor {
	scenes := make([]SceneDescriptor, n)
	for i := range scenes {
		scenes[i] = SceneDescriptor{
			Order:         i + 1,
			VoiceoverText: "narration",
			VisualIntent:  "city skyline at night",
			DurationHint:  60,
		}
	}
	return scenes
}

func seedSpec(t *testing.T, s *Store, n int) *SceneSpec {
	t.Helper()
	spec := &SceneSpec{
		UserID:         "user-1",
		Title:          "Night City",
		TargetDuration: 240,
		Scenes:         sampleScenes(n),
	}
	if err := s.CreateSpec(context.Background(), spec); err != nil {
		t.Fatalf("create spec: %v", err)
	}
	return spec
}

func TestCreateAndGetSpec(t *testing.T) {
	s := mustOpen(t)
	spec := seedSpec(t, s, 3)

	got, err := s.GetSpec(context.Background(), spec.ID)
	if err != nil {
		t.Fatalf("get spec: %v", err)
	}
	if got == nil {
		t.Fatal("expected spec")
	}
	if got.Status != SpecStatusDraft {
		t.Fatalf("status = %s, want draft", got.Status)
	}
	if len(got.Scenes) != 3 || got.Scenes[2].Order != 3 {
		t.Fatalf("scenes round-trip broken: %+v", got.Scenes)
	}
	if got.RenderedAt != nil {
		t.Fatal("rendered_at should be nil for draft")
	}
}

func TestGetSpecMissingReturnsNil(t *testing.T) {
	s := mustOpen(t)
	got, err := s.GetSpec(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing spec")
	}
}

func TestCreateSpecRejectsInvalidScenes(t *testing.T) {
	s := mustOpen(t)
	cases := []struct {
		name   string
		scenes []SceneDescriptor
	}{
		{"empty", nil},
		{"gap in order", []SceneDescriptor{
			{Order: 1, VoiceoverText: "a", VisualIntent: "b"},
			{Order: 3, VoiceoverText: "a", VisualIntent: "b"},
		}},
		{"blank voiceover", []SceneDescriptor{{Order: 1, VoiceoverText: " ", VisualIntent: "b"}}},
		{"blank visual intent", []SceneDescriptor{{Order: 1, VoiceoverText: "a", VisualIntent: ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.CreateSpec(context.Background(), &SceneSpec{
				UserID:         "u",
				Title:          "t",
				TargetDuration: 200,
				Scenes:         tc.scenes,
			})
			if err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApproveSpec(t *testing.T) {
	s := mustOpen(t)
	spec := seedSpec(t, s, 1)

	if err := s.ApproveSpec(context.Background(), spec.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ := s.GetSpec(context.Background(), spec.ID)
	if got.Status != SpecStatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
	// Approving again must fail: status only advances forward.
	if err := s.ApproveSpec(context.Background(), spec.ID); err == nil {
		t.Fatal("expected error approving non-draft spec")
	}
}

func TestBeginRender(t *testing.T) {
	s := mustOpen(t)
	spec := seedSpec(t, s, 2)

	asset := &MediaAsset{
		UserID: spec.UserID,
		Prompt: spec.Title,
		Metadata: AssetMetadata{
			FPS: 30, Width: 1080, Height: 1920,
			FrameCount: 7200, SceneCount: 2, SpecID: spec.ID,
		},
	}
	if err := s.BeginRender(context.Background(), spec.ID, asset); err != nil {
		t.Fatalf("begin render: %v", err)
	}
	if asset.ID == "" {
		t.Fatal("expected asset id assigned")
	}

	gotSpec, _ := s.GetSpec(context.Background(), spec.ID)
	if gotSpec.Status != SpecStatusRendering {
		t.Fatalf("spec status = %s, want rendering", gotSpec.Status)
	}
	if gotSpec.MediaAssetID != asset.ID {
		t.Fatalf("media asset id = %q, want %q", gotSpec.MediaAssetID, asset.ID)
	}

	gotAsset, err := s.GetAsset(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if gotAsset.Status != AssetStatusProcessing {
		t.Fatalf("asset status = %s, want processing", gotAsset.Status)
	}
	if gotAsset.Metadata.SpecID != spec.ID || gotAsset.Metadata.FrameCount != 7200 {
		t.Fatalf("metadata round-trip broken: %+v", gotAsset.Metadata)
	}

	// A second BeginRender on the same spec must be rejected.
	if err := s.BeginRender(context.Background(), spec.ID, &MediaAsset{UserID: "u"}); err == nil {
		t.Fatal("expected error starting second render")
	}
}

func TestFinishRenderSuccess(t *testing.T) {
	s := mustOpen(t)
	spec := seedSpec(t, s, 1)
	asset := &MediaAsset{UserID: spec.UserID}
	if err := s.BeginRender(context.Background(), spec.ID, asset); err != nil {
		t.Fatalf("begin render: %v", err)
	}

	applied, err := s.FinishRender(context.Background(), spec.ID, asset.ID, RenderOutcome{
		Succeeded: true,
		ResultURL: "https://cdn.example.com/out.mp4",
	})
	if err != nil {
		t.Fatalf("finish render: %v", err)
	}
	if !applied {
		t.Fatal("expected terminal write applied")
	}

	gotSpec, _ := s.GetSpec(context.Background(), spec.ID)
	if gotSpec.Status != SpecStatusRendered {
		t.Fatalf("spec status = %s, want rendered", gotSpec.Status)
	}
	if gotSpec.RenderedAt == nil {
		t.Fatal("rendered_at should be set")
	}

	gotAsset, _ := s.GetAsset(context.Background(), asset.ID)
	if gotAsset.Status != AssetStatusReady {
		t.Fatalf("asset status = %s, want ready", gotAsset.Status)
	}
	if gotAsset.ResultURL == "" || gotAsset.CompletedAt == nil {
		t.Fatalf("ready asset must carry result url and completed_at: %+v", gotAsset)
	}
}

func TestFinishRenderFailure(t *testing.T) {
	s := mustOpen(t)
	spec := seedSpec(t, s, 1)
	asset := &MediaAsset{UserID: spec.UserID}
	if err := s.BeginRender(context.Background(), spec.ID, asset); err != nil {
		t.Fatalf("begin render: %v", err)
	}

	applied, err := s.FinishRender(context.Background(), spec.ID, asset.ID, RenderOutcome{
		ErrorMessage: "render worker reported failure",
	})
	if err != nil {
		t.Fatalf("finish render: %v", err)
	}
	if !applied {
		t.Fatal("expected terminal write applied")
	}

	gotSpec, _ := s.GetSpec(context.Background(), spec.ID)
	gotAsset, _ := s.GetAsset(context.Background(), asset.ID)
	if gotSpec.Status != SpecStatusFailed || gotAsset.Status != AssetStatusFailed {
		t.Fatalf("statuses = %s/%s, want failed/failed", gotSpec.Status, gotAsset.Status)
	}
	if gotSpec.ErrorMessage == "" || gotAsset.ErrorMessage == "" {
		t.Fatal("failed records must carry an error message")
	}
}

func TestFinishRenderIdempotent(t *testing.T) {
	s := mustOpen(t)
	spec := seedSpec(t, s, 1)
	asset := &MediaAsset{UserID: spec.UserID}
	if err := s.BeginRender(context.Background(), spec.ID, asset); err != nil {
		t.Fatalf("begin render: %v", err)
	}

	applied, err := s.FinishRender(context.Background(), spec.ID, asset.ID, RenderOutcome{
		Succeeded: true,
		ResultURL: "https://cdn.example.com/out.mp4",
	})
	if err != nil || !applied {
		t.Fatalf("first finish: applied=%v err=%v", applied, err)
	}
	first, _ := s.GetAsset(context.Background(), asset.ID)

	time.Sleep(5 * time.Millisecond)
	applied, err = s.FinishRender(context.Background(), spec.ID, asset.ID, RenderOutcome{
		ErrorMessage: "late failure must not overwrite",
	})
	if err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if applied {
		t.Fatal("second terminal write must be a no-op")
	}

	second, _ := s.GetAsset(context.Background(), asset.ID)
	if second.Status != AssetStatusReady {
		t.Fatalf("status mutated to %s", second.Status)
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatal("completed_at changed on duplicate terminal write")
	}
}

func TestResetInFlight(t *testing.T) {
	s := mustOpen(t)
	spec := seedSpec(t, s, 1)
	asset := &MediaAsset{UserID: spec.UserID}
	if err := s.BeginRender(context.Background(), spec.ID, asset); err != nil {
		t.Fatalf("begin render: %v", err)
	}
	done := seedSpec(t, s, 1)

	count, err := s.ResetInFlight(context.Background(), "")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if count != 1 {
		t.Fatalf("reset count = %d, want 1", count)
	}

	gotSpec, _ := s.GetSpec(context.Background(), spec.ID)
	gotAsset, _ := s.GetAsset(context.Background(), asset.ID)
	if gotSpec.Status != SpecStatusFailed || gotAsset.Status != AssetStatusFailed {
		t.Fatalf("statuses = %s/%s, want failed/failed", gotSpec.Status, gotAsset.Status)
	}
	if gotSpec.ErrorMessage != DaemonStopMessage {
		t.Fatalf("error = %q, want daemon stop message", gotSpec.ErrorMessage)
	}

	untouched, _ := s.GetSpec(context.Background(), done.ID)
	if untouched.Status != SpecStatusDraft {
		t.Fatalf("draft spec mutated to %s", untouched.Status)
	}
}

func TestListSpecsFiltered(t *testing.T) {
	s := mustOpen(t)
	a := seedSpec(t, s, 1)
	seedSpec(t, s, 1)
	if err := s.ApproveSpec(context.Background(), a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	approved, err := s.ListSpecs(context.Background(), SpecStatusApproved)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != a.ID {
		t.Fatalf("filtered list = %+v", approved)
	}

	all, err := s.ListSpecs(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
}

func TestHealthSummary(t *testing.T) {
	s := mustOpen(t)
	seedSpec(t, s, 1)
	spec := seedSpec(t, s, 1)
	asset := &MediaAsset{UserID: spec.UserID}
	if err := s.BeginRender(context.Background(), spec.ID, asset); err != nil {
		t.Fatalf("begin render: %v", err)
	}

	summary, err := s.HealthSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 2 || summary.Draft != 1 || summary.Rendering != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestParseSpecStatus(t *testing.T) {
	if status, ok := ParseSpecStatus(" Rendering "); !ok || status != SpecStatusRendering {
		t.Fatalf("parse = %s/%v", status, ok)
	}
	if _, ok := ParseSpecStatus("bogus"); ok {
		t.Fatal("expected bogus status rejected")
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []SpecStatus{SpecStatusRendered, SpecStatusFailed} {
		if !status.Terminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []SpecStatus{SpecStatusDraft, SpecStatusApproved, SpecStatusRendering} {
		if status.Terminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
	if !AssetStatusReady.Terminal() || !AssetStatusFailed.Terminal() || AssetStatusProcessing.Terminal() {
		t.Fatal("asset terminal classification wrong")
	}
}
