package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/assets"
	"reelsmith/internal/config"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
	"reelsmith/internal/synthesis"
	"reelsmith/internal/testsupport"
)

const generatedCode = `import { AbsoluteFill, Sequence, useCurrentFrame } from "remotion";

const Timeline = () => {
  const frame = useCurrentFrame();
  return (
    <AbsoluteFill>
      <Sequence from={0} durationInFrames={9000}>{frame}</Sequence>
    </AbsoluteFill>
  );
};

export default Timeline;`

type stubPreparer struct {
	warnings []string
	err      error
}

func (s *stubPreparer) Prepare(ctx context.Context, scenes []store.SceneDescriptor) ([]assets.PreparedScene, []string, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	prepared := make([]assets.PreparedScene, len(scenes))
	for i, scene := range scenes {
		prepared[i] = assets.PreparedScene{
			Order:         scene.Order,
			VoiceoverText: scene.VoiceoverText,
			VisualIntent:  scene.VisualIntent,
			AudioURL:      fmt.Sprintf("https://cdn.example/a%d.mp3", scene.Order),
			VideoURLs:     []string{fmt.Sprintf("https://cdn.example/v%d.mp4", scene.Order)},
		}
	}
	return prepared, s.warnings, nil
}

type stubSynthesizer struct {
	code string
	err  error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, req synthesis.Request) (synthesis.Result, error) {
	if s.err != nil {
		return synthesis.Result{}, s.err
	}
	plans, total := synthesis.PlanFrames(req.Scenes, req.TargetDuration, req.FPS)
	return synthesis.Result{Code: s.code, TotalFrames: total, Plans: plans}, nil
}

// fakeWorker plays both worker roles: dispatch target and status endpoint.
type fakeWorker struct {
	mu          sync.Mutex
	submitErr   error
	statusQueue []render.JobStatus
	statusErr   error
	submitted   []render.Job
	statusCalls int
}

func (w *fakeWorker) Submit(ctx context.Context, job render.Job) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitErr != nil {
		return w.submitErr
	}
	w.submitted = append(w.submitted, job)
	return nil
}

func (w *fakeWorker) Status(ctx context.Context, jobID string) (render.JobStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statusCalls++
	if w.statusErr != nil {
		return render.JobStatus{}, w.statusErr
	}
	if len(w.statusQueue) == 0 {
		return render.JobStatus{State: render.JobRendering}, nil
	}
	status := w.statusQueue[0]
	if len(w.statusQueue) > 1 {
		w.statusQueue = w.statusQueue[1:]
	}
	return status, nil
}

type harness struct {
	store    *store.Store
	worker   *fakeWorker
	monitor  *Monitor
	orch     *Orchestrator
	pipeline config.Pipeline
}

func newHarness(t *testing.T, preparer AssetPreparer, synthesizer CodeSynthesizer, worker *fakeWorker, maxAttempts int) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.MaxPollAttempts = maxAttempts
	st := testsupport.MustOpenStore(t, cfg)

	poller := NewPoller(worker, st, nil, time.Millisecond, cfg.Pipeline.MaxPollAttempts, nil)
	monitor := NewMonitor(poller, nil)
	t.Cleanup(monitor.Stop)

	orch := NewOrchestrator(cfg.Pipeline, st, preparer, synthesizer, worker, monitor, nil, nil)
	return &harness{store: st, worker: worker, monitor: monitor, orch: orch, pipeline: cfg.Pipeline}
}

func (h *harness) finalState(t *testing.T, specID, assetID string) (*store.SceneSpec, *store.MediaAsset) {
	t.Helper()
	h.monitor.Wait()
	spec, err := h.store.GetSpec(context.Background(), specID)
	if err != nil || spec == nil {
		t.Fatalf("load spec: %v", err)
	}
	asset, err := h.store.GetAsset(context.Background(), assetID)
	if err != nil || asset == nil {
		t.Fatalf("load asset: %v", err)
	}
	return spec, asset
}

func TestRenderSuccessFirstPoll(t *testing.T) {
	worker := &fakeWorker{statusQueue: []render.JobStatus{
		{State: render.JobComplete, ResultURL: "https://cdn.example/final.mp4"},
	}}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 30)
	spec := testsupport.SeedSpec(t, h.store)

	accepted, err := h.orch.Render(context.Background(), spec.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if accepted.AssetID == "" || accepted.JobID == "" {
		t.Fatalf("incomplete acceptance %+v", accepted)
	}
	if len(worker.submitted) != 1 {
		t.Fatalf("expected one dispatched job, got %d", len(worker.submitted))
	}
	if worker.submitted[0].Output.DurationInFrames != 9000 {
		t.Errorf("dispatched frame count %d", worker.submitted[0].Output.DurationInFrames)
	}

	finalSpec, finalAsset := h.finalState(t, spec.ID, accepted.AssetID)
	if finalSpec.Status != store.SpecStatusRendered {
		t.Errorf("spec status %s, want rendered", finalSpec.Status)
	}
	if finalSpec.RenderedAt == nil {
		t.Error("rendered_at not set")
	}
	if finalAsset.Status != store.AssetStatusReady {
		t.Errorf("asset status %s, want ready", finalAsset.Status)
	}
	if finalAsset.ResultURL != "https://cdn.example/final.mp4" {
		t.Errorf("result url %q", finalAsset.ResultURL)
	}
}

func TestRenderDegradedSceneStillSucceeds(t *testing.T) {
	worker := &fakeWorker{statusQueue: []render.JobStatus{
		{State: render.JobComplete, ResultURL: "https://cdn.example/final.mp4"},
	}}
	preparer := &stubPreparer{warnings: []string{"footage degraded for scene 2: no clips matched"}}
	h := newHarness(t, preparer, &stubSynthesizer{code: generatedCode}, worker, 30)
	spec := testsupport.SeedSpec(t, h.store)

	accepted, err := h.orch.Render(context.Background(), spec.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	found := false
	for _, warning := range accepted.Warnings {
		if strings.Contains(warning, "scene 2") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected scene 2 warning, got %v", accepted.Warnings)
	}

	finalSpec, _ := h.finalState(t, spec.ID, accepted.AssetID)
	if finalSpec.Status != store.SpecStatusRendered {
		t.Errorf("degraded run should still render, status %s", finalSpec.Status)
	}
}

func TestRenderBannedCodeFailsBeforeDispatch(t *testing.T) {
	unsafe := strings.Replace(generatedCode, "{frame}", `{require("child_process").execSync("ls")}`, 1)
	worker := &fakeWorker{}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: unsafe}, worker, 30)
	spec := testsupport.SeedSpec(t, h.store)

	_, err := h.orch.Render(context.Background(), spec.ID)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(worker.submitted) != 0 {
		t.Error("unsafe code must never reach the worker")
	}
	assetList, err := h.store.ListAssets(context.Background())
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	if len(assetList) != 0 {
		t.Errorf("no asset record should exist, got %d", len(assetList))
	}
	reloaded, _ := h.store.GetSpec(context.Background(), spec.ID)
	if reloaded.Status != store.SpecStatusApproved {
		t.Errorf("spec should stay approved, got %s", reloaded.Status)
	}
}

func TestRenderWorkerUnavailableRollsRecords(t *testing.T) {
	worker := &fakeWorker{submitErr: fmt.Errorf("%w: http://127.0.0.1:3333", render.ErrWorkerUnavailable)}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 30)
	spec := testsupport.SeedSpec(t, h.store)

	_, err := h.orch.Render(context.Background(), spec.ID)
	if err == nil || !strings.Contains(err.Error(), "render worker unavailable") {
		t.Fatalf("expected distinguished unavailability error, got %v", err)
	}

	reloaded, _ := h.store.GetSpec(context.Background(), spec.ID)
	if reloaded.Status != store.SpecStatusFailed {
		t.Errorf("spec status %s, want failed", reloaded.Status)
	}
	if reloaded.ErrorMessage != "render worker unavailable" {
		t.Errorf("spec error %q", reloaded.ErrorMessage)
	}
	assetList, _ := h.store.ListAssets(context.Background())
	if len(assetList) != 1 || assetList[0].Status != store.AssetStatusFailed {
		t.Errorf("asset should be rolled to failed: %+v", assetList)
	}
}

func TestRenderRejectsDurationOutOfBounds(t *testing.T) {
	worker := &fakeWorker{}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 30)
	spec := testsupport.SeedSpec(t, h.store)

	for _, duration := range []int{h.pipeline.MinDurationSeconds - 1, h.pipeline.MaxDurationSeconds + 1} {
		short := &store.SceneSpec{
			UserID:         spec.UserID,
			Title:          "out of bounds",
			TargetDuration: duration,
			Scenes:         spec.Scenes,
		}
		if err := h.store.CreateSpec(context.Background(), short); err != nil {
			t.Fatalf("create spec: %v", err)
		}
		if err := h.store.ApproveSpec(context.Background(), short.ID); err != nil {
			t.Fatalf("approve spec: %v", err)
		}

		_, err := h.orch.Render(context.Background(), short.ID)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("duration %d: expected validation error, got %v", duration, err)
		}
	}
	assetList, _ := h.store.ListAssets(context.Background())
	if len(assetList) != 0 {
		t.Errorf("no asset records should exist, got %d", len(assetList))
	}
}

func TestRenderRequiresApprovedSpec(t *testing.T) {
	worker := &fakeWorker{}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 30)

	draft := &store.SceneSpec{
		UserID:         "user-1",
		Title:          "still a draft",
		TargetDuration: 300,
		Scenes: []store.SceneDescriptor{
			{Order: 1, VoiceoverText: "a", VisualIntent: "b"},
		},
	}
	if err := h.store.CreateSpec(context.Background(), draft); err != nil {
		t.Fatalf("create spec: %v", err)
	}
	if _, err := h.orch.Render(context.Background(), draft.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for draft, got %v", err)
	}
}

func TestRenderMissingSpec(t *testing.T) {
	worker := &fakeWorker{}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 30)
	if _, err := h.orch.Render(context.Background(), "no-such-id"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPollingTimeoutLaw(t *testing.T) {
	worker := &fakeWorker{} // always answers rendering
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 3)
	spec := testsupport.SeedSpec(t, h.store)

	accepted, err := h.orch.Render(context.Background(), spec.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	finalSpec, finalAsset := h.finalState(t, spec.ID, accepted.AssetID)
	if finalSpec.Status != store.SpecStatusFailed {
		t.Errorf("spec status %s, want failed", finalSpec.Status)
	}
	if finalAsset.Status != store.AssetStatusFailed {
		t.Errorf("asset status %s, want failed", finalAsset.Status)
	}
	if !strings.Contains(finalAsset.ErrorMessage, "timed out") {
		t.Errorf("expected timeout message, got %q", finalAsset.ErrorMessage)
	}
	if worker.statusCalls != 3 {
		t.Errorf("expected exactly 3 status checks, got %d", worker.statusCalls)
	}
}

func TestPollingStatusCheckFailure(t *testing.T) {
	worker := &fakeWorker{statusErr: errors.New("connect: network is unreachable")}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 2)
	spec := testsupport.SeedSpec(t, h.store)

	accepted, err := h.orch.Render(context.Background(), spec.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	_, finalAsset := h.finalState(t, spec.ID, accepted.AssetID)
	if finalAsset.Status != store.AssetStatusFailed {
		t.Errorf("asset status %s, want failed", finalAsset.Status)
	}
	if !strings.Contains(finalAsset.ErrorMessage, "failed to check render status") {
		t.Errorf("expected status-check message, got %q", finalAsset.ErrorMessage)
	}
}

func TestPollingWorkerFailureMessage(t *testing.T) {
	worker := &fakeWorker{statusQueue: []render.JobStatus{
		{State: render.JobRendering},
		{State: render.JobFailed, Error: "composition crashed at frame 812"},
	}}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 30)
	spec := testsupport.SeedSpec(t, h.store)

	accepted, err := h.orch.Render(context.Background(), spec.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	finalSpec, finalAsset := h.finalState(t, spec.ID, accepted.AssetID)
	if finalSpec.Status != store.SpecStatusFailed || finalAsset.Status != store.AssetStatusFailed {
		t.Errorf("both records must fail: spec=%s asset=%s", finalSpec.Status, finalAsset.Status)
	}
	if finalAsset.ErrorMessage != "composition crashed at frame 812" {
		t.Errorf("worker error text must be preserved, got %q", finalAsset.ErrorMessage)
	}
}

func TestTerminalWriteIsIdempotent(t *testing.T) {
	// A worker that keeps answering complete must still produce exactly one
	// terminal write.
	worker := &fakeWorker{statusQueue: []render.JobStatus{
		{State: render.JobComplete, ResultURL: "https://cdn.example/final.mp4"},
	}}
	h := newHarness(t, &stubPreparer{}, &stubSynthesizer{code: generatedCode}, worker, 30)
	spec := testsupport.SeedSpec(t, h.store)

	accepted, err := h.orch.Render(context.Background(), spec.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	_, first := h.finalState(t, spec.ID, accepted.AssetID)
	if first.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	// Simulate a stray duplicate poller for the same job.
	poller := NewPoller(worker, h.store, nil, time.Millisecond, 5, nil)
	poller.Run(context.Background(), PollJob{
		JobID:   accepted.JobID,
		SpecID:  spec.ID,
		AssetID: accepted.AssetID,
		Title:   spec.Title,
	})

	reloaded, err := h.store.GetAsset(context.Background(), accepted.AssetID)
	if err != nil {
		t.Fatalf("reload asset: %v", err)
	}
	if !reloaded.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("completed_at changed: %v -> %v", first.CompletedAt, reloaded.CompletedAt)
	}
	if reloaded.ResultURL != first.ResultURL || reloaded.Status != first.Status {
		t.Errorf("terminal record mutated: %+v vs %+v", first, reloaded)
	}
}

func TestMonitorStopRefusesNewJobs(t *testing.T) {
	worker := &fakeWorker{}
	poller := NewPoller(worker, nil, nil, time.Millisecond, 1, nil)
	monitor := NewMonitor(poller, nil)
	monitor.Stop()
	if monitor.Start(PollJob{JobID: "j"}) {
		t.Fatal("stopped monitor must refuse new jobs")
	}
}
