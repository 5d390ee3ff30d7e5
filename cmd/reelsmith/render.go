package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/assets"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/render"
	"reelsmith/internal/services/footage"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/speech"
	"reelsmith/internal/synthesis"
)

func newRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <spec-id>",
		Short: "Render an approved specification",
		Long:  "Runs the full pipeline for one specification: asset preparation,\ncode synthesis, validation, and dispatch to the render worker. The\ncommand blocks until the render reaches a terminal state, since a\none-shot process cannot leave a detached poller behind.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			st, _, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return err
			}

			notifier := notifications.NewService(cfg.Notifications, logger)
			preparer := assets.NewPreparer(
				speech.NewClient(speech.Config{
					APIKey:         cfg.Speech.APIKey,
					BaseURL:        cfg.Speech.BaseURL,
					Voice:          cfg.Speech.Voice,
					TimeoutSeconds: cfg.Speech.TimeoutSeconds,
				}),
				footage.NewClient(footage.Config{
					APIKey:         cfg.Footage.APIKey,
					BaseURL:        cfg.Footage.BaseURL,
					ClipsPerScene:  cfg.Footage.ClipsPerScene,
					TimeoutSeconds: cfg.Footage.TimeoutSeconds,
				}),
				logger,
			)
			synthesizer := synthesis.NewSynthesizer(llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				Referer:        cfg.LLM.Referer,
				Title:          cfg.LLM.Title,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			}), logger)
			worker := render.NewClient(render.Config{
				BaseURL:        cfg.RenderWorker.BaseURL,
				TimeoutSeconds: cfg.RenderWorker.TimeoutSeconds,
			})

			poller := pipeline.NewPoller(worker, st, notifier,
				time.Duration(cfg.Pipeline.PollIntervalSeconds)*time.Second,
				cfg.Pipeline.MaxPollAttempts, logger)
			monitor := pipeline.NewMonitor(poller, logger)
			orchestrator := pipeline.NewOrchestrator(cfg.Pipeline, st, preparer, synthesizer, worker, monitor, notifier, logger)

			ctx, cancel := signalContext()
			defer cancel()

			accepted, err := orchestrator.Render(ctx, args[0])
			if err != nil {
				monitor.Stop()
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Render accepted: asset %s, job %s\n", accepted.AssetID, accepted.JobID)
			for _, warning := range accepted.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", warning)
			}

			fmt.Fprintln(out, "Waiting for render to finish...")
			monitor.Wait()

			asset, err := st.GetAsset(ctx, accepted.AssetID)
			if err != nil || asset == nil {
				return fmt.Errorf("reload asset %s: %w", accepted.AssetID, err)
			}
			if asset.ResultURL != "" {
				fmt.Fprintf(out, "Render finished: %s (%s)\n", asset.Status, asset.ResultURL)
			} else {
				fmt.Fprintf(out, "Render finished: %s: %s\n", asset.Status, asset.ErrorMessage)
			}
			return nil
		},
	}
	return cmd
}
