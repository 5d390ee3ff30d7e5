// Package pipeline sequences the long-form render path: asset preparation,
// code synthesis, static validation, dispatch to the render worker, and
// detached completion polling. The orchestrator creates persisted records
// only at dispatch time; everything before that is side-effect free on the
// store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"reelsmith/internal/assets"
	"reelsmith/internal/codecheck"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
	"reelsmith/internal/synthesis"
)

// AssetPreparer is the per-scene media preparation boundary.
type AssetPreparer interface {
	Prepare(ctx context.Context, scenes []store.SceneDescriptor) ([]assets.PreparedScene, []string, error)
}

// CodeSynthesizer is the code generation boundary.
type CodeSynthesizer interface {
	Synthesize(ctx context.Context, req synthesis.Request) (synthesis.Result, error)
}

// Dispatcher is the render worker submission boundary.
type Dispatcher interface {
	Submit(ctx context.Context, job render.Job) error
}

// Notifier receives render lifecycle events. Implementations must tolerate
// being called from detached poller goroutines.
type Notifier interface {
	RenderStarted(ctx context.Context, title string)
	RenderCompleted(ctx context.Context, title, resultURL string)
	RenderFailed(ctx context.Context, title, reason string)
}

// Accepted is the immediate answer to a render request: the job was
// dispatched and a poller now tracks it. Warnings list any degraded scenes.
type Accepted struct {
	SpecID   string
	AssetID  string
	JobID    string
	Warnings []string
}

// Orchestrator runs the render pipeline for approved scene specifications.
type Orchestrator struct {
	cfg         config.Pipeline
	store       *store.Store
	preparer    AssetPreparer
	synthesizer CodeSynthesizer
	dispatcher  Dispatcher
	monitor     *Monitor
	notifier    Notifier
	logger      *slog.Logger
}

// NewOrchestrator wires the pipeline stages together. notifier may be nil.
func NewOrchestrator(
	cfg config.Pipeline,
	st *store.Store,
	preparer AssetPreparer,
	synthesizer CodeSynthesizer,
	dispatcher Dispatcher,
	monitor *Monitor,
	notifier Notifier,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg,
		store:       st,
		preparer:    preparer,
		synthesizer: synthesizer,
		dispatcher:  dispatcher,
		monitor:     monitor,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// Render executes the pipeline for one specification. It blocks through
// dispatch and returns as soon as the job is accepted; completion is
// observed later on the persisted records. Stage failures before dispatch
// leave no new records behind; a dispatch failure rolls the records it
// created to failed before returning.
func (o *Orchestrator) Render(ctx context.Context, specID string) (Accepted, error) {
	var accepted Accepted
	ctx = services.WithSpecID(ctx, specID)

	spec, err := o.store.GetSpec(ctx, specID)
	if err != nil {
		return accepted, services.Wrap(services.ErrTransient, "render", "load spec", "", err)
	}
	if spec == nil {
		return accepted, services.Wrap(services.ErrNotFound, "render", "load spec", fmt.Sprintf("spec %s not found", specID), nil)
	}
	if err := o.validatePreconditions(spec); err != nil {
		return accepted, err
	}

	// Stage 1: asset preparation. Degrades per scene, never fails the run.
	ctx = services.WithStage(ctx, "prepare")
	prepared, warnings, err := o.preparer.Prepare(ctx, spec.Scenes)
	if err != nil {
		return accepted, services.Wrap(services.ErrTransient, "prepare", "prepare assets", "", err)
	}

	// Stage 2: code synthesis.
	ctx = services.WithStage(ctx, "synthesize")
	result, err := o.synthesizer.Synthesize(ctx, synthesis.Request{
		Title:          spec.Title,
		Description:    spec.Description,
		TargetDuration: spec.TargetDuration,
		FPS:            o.cfg.FPS,
		Width:          o.cfg.Width,
		Height:         o.cfg.Height,
		Scenes:         prepared,
	})
	if err != nil {
		return accepted, err
	}

	// Stage 3: static safety gate.
	ctx = services.WithStage(ctx, "validate")
	check := codecheck.Validate(result.Code)
	if !check.OK {
		return accepted, services.Wrap(services.ErrValidation, "validate", "check generated code", check.Reason, nil)
	}

	// Stage 4: records exist only from this point on.
	ctx = services.WithStage(ctx, "dispatch")
	jobID := uuid.NewString()
	asset := &store.MediaAsset{
		UserID: spec.UserID,
		Prompt: spec.Title,
		Metadata: store.AssetMetadata{
			FPS:        o.cfg.FPS,
			Width:      o.cfg.Width,
			Height:     o.cfg.Height,
			FrameCount: result.TotalFrames,
			SceneCount: len(spec.Scenes),
			SpecID:     spec.ID,
		},
	}
	if err := o.store.BeginRender(ctx, spec.ID, asset); err != nil {
		return accepted, services.Wrap(services.ErrTransient, "dispatch", "create render records", "", err)
	}

	job := render.Job{
		ID:   jobID,
		Code: check.Code,
		Output: render.OutputConfig{
			FPS:              o.cfg.FPS,
			Width:            o.cfg.Width,
			Height:           o.cfg.Height,
			DurationInFrames: result.TotalFrames,
		},
	}
	if err := o.dispatcher.Submit(ctx, job); err != nil {
		o.rollbackDispatch(ctx, spec.ID, asset.ID, err)
		if errors.Is(err, render.ErrWorkerUnavailable) {
			return accepted, services.Wrap(services.ErrExternalService, "dispatch", "submit job", "render worker unavailable", err)
		}
		return accepted, services.Wrap(services.ErrExternalService, "dispatch", "submit job", "", err)
	}

	o.logger.InfoContext(ctx, "render dispatched",
		logging.String(logging.FieldSpecID, spec.ID),
		logging.String(logging.FieldAssetID, asset.ID),
		logging.String(logging.FieldJobID, jobID),
		logging.Int("warnings", len(warnings)))
	if o.notifier != nil {
		o.notifier.RenderStarted(ctx, spec.Title)
	}

	// The poller is launched only after the worker accepted the job.
	if o.monitor != nil {
		o.monitor.Start(PollJob{JobID: jobID, SpecID: spec.ID, AssetID: asset.ID, Title: spec.Title})
	}

	accepted = Accepted{SpecID: spec.ID, AssetID: asset.ID, JobID: jobID, Warnings: warnings}
	return accepted, nil
}

func (o *Orchestrator) validatePreconditions(spec *store.SceneSpec) error {
	if spec.Status != store.SpecStatusApproved {
		return services.Wrap(services.ErrValidation, "render", "check status",
			fmt.Sprintf("spec must be approved to render, current status is %s", spec.Status), nil)
	}
	if err := store.ValidateScenes(spec.Scenes); err != nil {
		return services.Wrap(services.ErrValidation, "render", "check scenes", "", err)
	}
	if spec.TargetDuration < o.cfg.MinDurationSeconds || spec.TargetDuration > o.cfg.MaxDurationSeconds {
		return services.Wrap(services.ErrValidation, "render", "check duration",
			fmt.Sprintf("target duration %ds outside supported range %d-%ds",
				spec.TargetDuration, o.cfg.MinDurationSeconds, o.cfg.MaxDurationSeconds), nil)
	}
	return nil
}

// rollbackDispatch rolls the freshly created records to failed after a
// dispatch error. The pair would otherwise sit in rendering/processing with
// no poller watching it.
func (o *Orchestrator) rollbackDispatch(ctx context.Context, specID, assetID string, dispatchErr error) {
	message := fmt.Sprintf("dispatch failed: %v", dispatchErr)
	if errors.Is(dispatchErr, render.ErrWorkerUnavailable) {
		message = "render worker unavailable"
	}
	if _, err := o.store.FinishRender(ctx, specID, assetID, store.RenderOutcome{ErrorMessage: message}); err != nil {
		o.logger.ErrorContext(ctx, "failed to roll back dispatched records",
			logging.String(logging.FieldSpecID, specID),
			logging.Error(err))
	}
	if o.notifier != nil {
		o.notifier.RenderFailed(ctx, specID, message)
	}
}
