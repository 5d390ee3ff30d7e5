// Package assets prepares per-scene media before code generation: synthesized
// voiceover audio and stock footage clips, fetched from two independent
// providers. The two batches run concurrently and degrade per scene; the
// preparer always returns one prepared scene per input descriptor.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/logging"
	"reelsmith/internal/services/footage"
	"reelsmith/internal/services/speech"
	"reelsmith/internal/store"
)

// SpeechSynthesizer produces audio for an ordered batch of voiceover texts.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, texts []string) (speech.BatchResult, error)
}

// FootageFinder looks up stock clips for an ordered batch of visual intents.
type FootageFinder interface {
	Search(ctx context.Context, visualIntents []string, perScene int) (footage.BatchResult, error)
}

// PreparedScene carries one scene's descriptor plus its fetched media. Either
// media field may be empty after provider failure; VideoURLs is never nil.
type PreparedScene struct {
	Order         int
	VoiceoverText string
	VisualIntent  string
	DurationHint  float64
	AudioURL      string
	VideoURLs     []string
}

// Preparer runs the two provider batches for a scene list.
type Preparer struct {
	speech  SpeechSynthesizer
	footage FootageFinder
	logger  *slog.Logger
}

// NewPreparer constructs a Preparer.
func NewPreparer(speechClient SpeechSynthesizer, footageClient FootageFinder, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Preparer{
		speech:  speechClient,
		footage: footageClient,
		logger:  logging.NewComponentLogger(logger, "asset-preparer"),
	}
}

// Prepare fetches audio and footage for every scene. It never fails the batch
// for provider errors: degraded scenes keep empty media fields and the
// returned warnings describe what was lost. The result always contains
// exactly one entry per descriptor, in order.
func (p *Preparer) Prepare(ctx context.Context, scenes []store.SceneDescriptor) ([]PreparedScene, []string, error) {
	prepared := make([]PreparedScene, len(scenes))
	texts := make([]string, len(scenes))
	intents := make([]string, len(scenes))
	for i, scene := range scenes {
		prepared[i] = PreparedScene{
			Order:         scene.Order,
			VoiceoverText: scene.VoiceoverText,
			VisualIntent:  scene.VisualIntent,
			DurationHint:  scene.DurationHint,
			VideoURLs:     []string{},
		}
		texts[i] = scene.VoiceoverText
		intents[i] = scene.VisualIntent
	}
	if len(scenes) == 0 {
		return prepared, nil, nil
	}

	var speechResult speech.BatchResult
	var footageResult footage.BatchResult
	var speechErr, footageErr error

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		speechResult, speechErr = p.speech.Synthesize(groupCtx, texts)
		return nil
	})
	group.Go(func() error {
		footageResult, footageErr = p.footage.Search(groupCtx, intents, 0)
		return nil
	})
	// Worker funcs never return errors; batch failures degrade below.
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return prepared, nil, err
	}

	var warnings []string
	if speechErr != nil {
		warnings = append(warnings, fmt.Sprintf("voiceover synthesis unavailable: %v", speechErr))
	} else {
		warnings = append(warnings, sceneWarnings("voiceover", speechResult.Errors)...)
		for i := range prepared {
			if i < len(speechResult.AudioURLs) {
				prepared[i].AudioURL = speechResult.AudioURLs[i]
			}
		}
	}
	if footageErr != nil {
		warnings = append(warnings, fmt.Sprintf("stock footage unavailable: %v", footageErr))
	} else {
		warnings = append(warnings, sceneWarnings("footage", footageResult.Errors)...)
		for i := range prepared {
			if i < len(footageResult.VideoURLs) && footageResult.VideoURLs[i] != nil {
				prepared[i].VideoURLs = footageResult.VideoURLs[i]
			}
		}
	}

	for _, warning := range warnings {
		p.logger.WarnContext(ctx, "degraded asset preparation", logging.String("detail", warning))
	}
	return prepared, warnings, nil
}

// Provider batches report per-item errors as "item N: ..."; rephrase them in
// scene terms for diagnostics.
func sceneWarnings(kind string, errs []string) []string {
	warnings := make([]string, 0, len(errs))
	for _, message := range errs {
		message = strings.Replace(message, "item ", "scene ", 1)
		warnings = append(warnings, fmt.Sprintf("%s degraded for %s", kind, message))
	}
	return warnings
}
