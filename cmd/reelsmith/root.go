package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
)

var (
	configPath string

	configOnce   sync.Once
	cachedConfig *config.Config
	cachedPath   string
	configErr    error
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "reelsmith",
		Short:         "Long-form video rendering pipeline",
		Long:          "reelsmith turns structured scene specifications into rendered videos:\nper-scene voiceover and footage, generated presentation code, static\nsafety validation, and dispatch to an isolated render worker.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file")
	root.AddCommand(
		newDaemonCommand(),
		newSpecCommand(),
		newRenderCommand(),
		newStatusCommand(),
		newConfigCommand(),
	)
	return root
}

// loadConfig parses the config file once per invocation and applies
// environment overrides for credentials.
func loadConfig() (*config.Config, string, error) {
	configOnce.Do(func() {
		cachedConfig, cachedPath, _, configErr = config.Load(configPath)
		if configErr == nil {
			applyEnvOverrides(cachedConfig)
		}
	})
	return cachedConfig, cachedPath, configErr
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("REELSMITH_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("REELSMITH_SPEECH_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv("REELSMITH_FOOTAGE_API_KEY"); v != "" {
		cfg.Footage.APIKey = v
	}
	if v := os.Getenv("REELSMITH_API_TOKEN"); v != "" {
		cfg.Paths.APIToken = v
	}
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
