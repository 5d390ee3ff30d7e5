// Package daemon runs the long-lived reelsmith process: it owns the store,
// the render pipeline, the detached poller monitor, and the HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/assets"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/render"
	"reelsmith/internal/services/footage"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/speech"
	"reelsmith/internal/store"
	"reelsmith/internal/synthesis"
)

const shutdownGrace = 10 * time.Second

// Daemon is the long-running reelsmith process.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *store.Store
	orchestrator *pipeline.Orchestrator
	monitor      *pipeline.Monitor
	notifier     *notifications.Service
	server       *http.Server
	lock         *flock.Flock
}

// New wires the production daemon: provider clients, pipeline, monitor, and
// API server, all from config.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	notifier := notifications.NewService(cfg.Notifications, logger)

	speechClient := speech.NewClient(speech.Config{
		APIKey:         cfg.Speech.APIKey,
		BaseURL:        cfg.Speech.BaseURL,
		Voice:          cfg.Speech.Voice,
		TimeoutSeconds: cfg.Speech.TimeoutSeconds,
	})
	footageClient := footage.NewClient(footage.Config{
		APIKey:         cfg.Footage.APIKey,
		BaseURL:        cfg.Footage.BaseURL,
		ClipsPerScene:  cfg.Footage.ClipsPerScene,
		TimeoutSeconds: cfg.Footage.TimeoutSeconds,
	})
	model := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	worker := render.NewClient(render.Config{
		BaseURL:        cfg.RenderWorker.BaseURL,
		TimeoutSeconds: cfg.RenderWorker.TimeoutSeconds,
	})

	preparer := assets.NewPreparer(speechClient, footageClient, logger)
	synthesizer := synthesis.NewSynthesizer(model, logger)
	poller := pipeline.NewPoller(worker, st, notifier,
		time.Duration(cfg.Pipeline.PollIntervalSeconds)*time.Second,
		cfg.Pipeline.MaxPollAttempts, logger)
	monitor := pipeline.NewMonitor(poller, logger)
	orchestrator := pipeline.NewOrchestrator(cfg.Pipeline, st, preparer, synthesizer, worker, monitor, notifier, logger)

	return newDaemon(cfg, logger, st, orchestrator, monitor, notifier), nil
}

func newDaemon(
	cfg *config.Config,
	logger *slog.Logger,
	st *store.Store,
	orchestrator *pipeline.Orchestrator,
	monitor *pipeline.Monitor,
	notifier *notifications.Service,
) *Daemon {
	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		store:        st,
		orchestrator: orchestrator,
		monitor:      monitor,
		notifier:     notifier,
		lock:         flock.New(filepath.Join(cfg.Paths.DataDir, "reelsmith.lock")),
	}
	d.server = &http.Server{
		Addr:         cfg.Paths.APIBind,
		Handler:      d.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return d
}

// Run starts the daemon and blocks until the context is cancelled, then
// shuts down cleanly.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return d.Stop()
}

// Start acquires the instance lock, resolves any renders left in flight by a
// previous run, and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is already running (lock %s)", d.lock.Path())
	}

	// Pollers are in-process; a previous crash left these unattended.
	reset, err := d.store.ResetInFlight(ctx, store.DaemonStopMessage)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset in-flight renders: %w", err)
	}
	if reset > 0 {
		d.logger.WarnContext(ctx, "failed renders left by previous run",
			logging.Int("count", reset))
	}

	listener, err := newListener(d.server.Addr)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("bind api address %s: %w", d.server.Addr, err)
	}
	d.logger.InfoContext(ctx, "daemon started",
		logging.String("api_bind", listener.Addr().String()),
		logging.String("database", d.store.Path()))

	go func() {
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("api server stopped", logging.Error(err))
		}
	}()
	return nil
}

// Stop shuts the API down, drains pollers, rolls interrupted renders to
// failed, and releases the lock.
func (d *Daemon) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	var errs []error
	if err := d.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown api server: %w", err))
	}

	d.monitor.Stop()
	if reset, err := d.store.ResetInFlight(ctx, store.DaemonStopMessage); err != nil {
		errs = append(errs, fmt.Errorf("reset in-flight renders: %w", err))
	} else if reset > 0 {
		d.logger.Warn("interrupted in-flight renders", logging.Int("count", reset))
	}

	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := d.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release instance lock: %w", err))
	}
	d.logger.Info("daemon stopped")
	return errors.Join(errs...)
}
