// Package synthesis turns a scene specification plus prepared media into
// generated presentation code. The prompt is deterministic: scene boundaries
// are planned in frames before the model is invoked, so the requested code
// has no ambiguity about timing. The raw model output is returned unchecked;
// validation happens downstream.
package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"reelsmith/internal/assets"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// CodeModel is the generative model boundary.
type CodeModel interface {
	CompleteCode(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Request carries everything needed to build the prompt.
type Request struct {
	Title          string
	Description    string
	TargetDuration int // seconds
	FPS            int
	Width          int
	Height         int
	Scenes         []assets.PreparedScene
}

// Result is the raw model output plus the frame plan it was asked to honor.
type Result struct {
	Code        string
	TotalFrames int
	Plans       []ScenePlan
}

// Synthesizer invokes the code model with a frame-accurate prompt.
type Synthesizer struct {
	model  CodeModel
	logger *slog.Logger
}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer(model CodeModel, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{
		model:  model,
		logger: logging.NewComponentLogger(logger, "code-synthesizer"),
	}
}

// Synthesize builds the prompt and returns the model's raw text response.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	var result Result
	if s.model == nil {
		return result, services.Wrap(services.ErrConfiguration, "synthesis", "synthesize", "code model not configured", nil)
	}
	if len(req.Scenes) == 0 {
		return result, services.Wrap(services.ErrValidation, "synthesis", "synthesize", "no scenes to synthesize", nil)
	}
	if req.FPS <= 0 || req.Width <= 0 || req.Height <= 0 || req.TargetDuration <= 0 {
		return result, services.Wrap(services.ErrValidation, "synthesis", "synthesize", "output configuration incomplete", nil)
	}

	plans, totalFrames := PlanFrames(req.Scenes, req.TargetDuration, req.FPS)
	userPrompt := buildUserPrompt(req, plans, totalFrames)

	s.logger.InfoContext(ctx, "requesting presentation code",
		logging.Int("scenes", len(req.Scenes)),
		logging.Int("total_frames", totalFrames))

	code, err := s.model.CompleteCode(ctx, systemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		return result, services.Wrap(services.ErrExternalService, "synthesis", "synthesize", "code model call failed", err)
	}
	if strings.TrimSpace(code) == "" {
		return result, services.Wrap(services.ErrExternalService, "synthesis", "synthesize", "code model returned empty response", nil)
	}

	result.Code = code
	result.TotalFrames = totalFrames
	result.Plans = plans
	return result, nil
}
