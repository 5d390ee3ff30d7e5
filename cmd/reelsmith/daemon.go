package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/daemon"
	"reelsmith/internal/logging"
)

func newDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the reelsmith daemon",
	}
	cmd.AddCommand(newDaemonRunCommand())
	return cmd
}

func newDaemonRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:   cfg.Logging.Level,
				Format:  cfg.Logging.Format,
				LogFile: cfg.LogFilePath(),
			})
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}

			logger.Info("using configuration", logging.String("path", path))
			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return d.Run(ctx)
		},
	}
}
