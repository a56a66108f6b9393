package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aurora-assistant/internal/analytics"
	"aurora-assistant/internal/assistant"
	"aurora-assistant/internal/config"
	"aurora-assistant/internal/logging"
	"aurora-assistant/internal/schedule"
	"aurora-assistant/internal/tools"
	"aurora-assistant/internal/ui"
)

const defaultInstructions = "You are a helpful assistant."

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the assistant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}

			display := ui.NewConsole(log)
			display.UpdateState(ui.StateLoadStart, "Starting up")
			defer display.Shutdown()

			instructions := loadInstructions(cfg, log)

			store := schedule.NewStore(log)
			defer store.Clear()

			reporter := analytics.NewReporter(cfg.AnalyticsURL, cfg.AnalyticsSource, cfg.AnalyticsAPIKey, log)
			registry := tools.NewRegistry(tools.Deps{
				Config:    cfg,
				Store:     store,
				Analytics: reporter,
				Log:       log,
			}, tools.DefaultConstructors())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gate := assistant.NewGate(cfg, instructions, registry, store, display, log)
			if err := gate.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func loadInstructions(cfg config.Config, log *slog.Logger) string {
	if cfg.AgentInstructionsPath == "" {
		return defaultInstructions
	}
	data, err := os.ReadFile(cfg.AgentInstructionsPath)
	if err != nil {
		log.Warn("agent instructions file not found", "path", cfg.AgentInstructionsPath)
		return defaultInstructions
	}
	log.Info("loaded agent instructions", "path", cfg.AgentInstructionsPath)
	return string(data)
}
