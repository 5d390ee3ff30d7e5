package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"reelsmith/internal/logging"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

// errStillRendering marks a poll tick that found the job in progress so the
// retry loop reschedules it.
var errStillRendering = errors.New("render still in progress")

// StatusChecker is the worker status boundary.
type StatusChecker interface {
	Status(ctx context.Context, jobID string) (render.JobStatus, error)
}

// PollJob identifies one render being tracked: the worker job plus the
// spec/asset pair that must receive the terminal write.
type PollJob struct {
	JobID   string
	SpecID  string
	AssetID string
	Title   string
}

// Poller watches a render job on a fixed interval and performs the single
// terminal transition once the job resolves, times out, or stops answering.
type Poller struct {
	worker      StatusChecker
	store       *store.Store
	notifier    Notifier
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// NewPoller constructs a Poller. interval and maxAttempts together bound the
// wall-clock lifetime of every tracked job.
func NewPoller(worker StatusChecker, st *store.Store, notifier Notifier, interval time.Duration, maxAttempts int, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Poller{
		worker:      worker,
		store:       st,
		notifier:    notifier,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logging.NewComponentLogger(logger, "completion-poller"),
	}
}

// Run polls until a terminal condition and writes the outcome to both
// records. A cancelled context skips the terminal write; the daemon rolls
// interrupted renders separately. Run never writes more than once per job:
// the loop halts on the first terminal condition and the store transition is
// a no-op for already-terminal assets.
func (p *Poller) Run(ctx context.Context, job PollJob) {
	ctx = services.WithStage(services.WithSpecID(ctx, job.SpecID), "poll")
	var terminal render.JobStatus
	var lastCheckErr error

	backoff := retry.WithMaxRetries(uint64(p.maxAttempts-1), retry.NewConstant(p.interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, statusErr := p.worker.Status(ctx, job.JobID)
		if statusErr != nil {
			lastCheckErr = statusErr
			p.logger.WarnContext(ctx, "render status check failed",
				logging.String(logging.FieldJobID, job.JobID),
				logging.Error(statusErr))
			return retry.RetryableError(statusErr)
		}
		lastCheckErr = nil
		if status.State.Terminal() {
			terminal = status
			return nil
		}
		return retry.RetryableError(errStillRendering)
	})

	switch {
	case err == nil:
		p.finish(ctx, job, outcomeFromStatus(terminal))
	case ctx.Err() != nil:
		// Shutdown. Interrupted renders are resolved by the daemon's
		// in-flight reset, not by a terminal write here.
		p.logger.InfoContext(ctx, "render polling interrupted",
			logging.String(logging.FieldJobID, job.JobID))
	case errors.Is(err, errStillRendering):
		p.finish(ctx, job, store.RenderOutcome{
			ErrorMessage: fmt.Sprintf("render timed out after %d status checks", p.maxAttempts),
		})
	default:
		message := "failed to check render status"
		if lastCheckErr != nil {
			message = fmt.Sprintf("failed to check render status: %v", lastCheckErr)
		}
		p.finish(ctx, job, store.RenderOutcome{ErrorMessage: message})
	}
}

func outcomeFromStatus(status render.JobStatus) store.RenderOutcome {
	if status.State == render.JobComplete {
		if status.ResultURL == "" {
			return store.RenderOutcome{ErrorMessage: "render worker reported completion without a result url"}
		}
		return store.RenderOutcome{Succeeded: true, ResultURL: status.ResultURL}
	}
	message := status.Error
	if message == "" {
		message = "render worker reported failure"
	}
	return store.RenderOutcome{ErrorMessage: message}
}

func (p *Poller) finish(ctx context.Context, job PollJob, outcome store.RenderOutcome) {
	applied, err := p.store.FinishRender(ctx, job.SpecID, job.AssetID, outcome)
	if err != nil {
		p.logger.ErrorContext(ctx, "terminal render transition failed",
			logging.String(logging.FieldJobID, job.JobID),
			logging.Error(err))
		return
	}
	if !applied {
		p.logger.DebugContext(ctx, "render already finalized",
			logging.String(logging.FieldJobID, job.JobID))
		return
	}
	if outcome.Succeeded {
		p.logger.InfoContext(ctx, "render completed",
			logging.String(logging.FieldJobID, job.JobID),
			logging.String("result_url", outcome.ResultURL))
		if p.notifier != nil {
			p.notifier.RenderCompleted(ctx, job.Title, outcome.ResultURL)
		}
		return
	}
	p.logger.ErrorContext(ctx, "render failed",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String("reason", outcome.ErrorMessage))
	if p.notifier != nil {
		p.notifier.RenderFailed(ctx, job.Title, outcome.ErrorMessage)
	}
}
