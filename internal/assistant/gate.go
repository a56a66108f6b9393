package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"aurora-assistant/internal/audio"
	"aurora-assistant/internal/config"
	"aurora-assistant/internal/realtime"
	"aurora-assistant/internal/schedule"
	"aurora-assistant/internal/tools"
	"aurora-assistant/internal/ui"
	"aurora-assistant/internal/wake"
)

const (
	connectivityProbeURL = "https://api.openai.com/"
	retryBackoff         = 5 * time.Second
)

// Gate is the outer loop of the assistant: play any due alarm, sleep until
// the wake phrase, run a conversation, repeat. Errors inside a cycle are
// logged and retried after a backoff; only context cancellation stops it.
type Gate struct {
	cfg          config.Config
	instructions string
	registry     *tools.Registry
	store        *schedule.Store
	ui           ui.UI
	player       *audio.Player
	log          *slog.Logger
}

func NewGate(cfg config.Config, instructions string, registry *tools.Registry, store *schedule.Store, u ui.UI, log *slog.Logger) *Gate {
	return &Gate{
		cfg:          cfg,
		instructions: instructions,
		registry:     registry,
		store:        store,
		ui:           u,
		player:       audio.NewPlayer(cfg.OutputDeviceID, log),
		log:          log.With("component", "gate"),
	}
}

// Run blocks until ctx is canceled or the shutdown button is pressed.
func (g *Gate) Run(ctx context.Context) error {
	g.waitForInternet(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	g.ui.UpdateState(ui.StateLoadInternet, "Internet connection established")

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	if err := audio.LogDevices(g.log); err != nil {
		g.log.Warn("failed to enumerate audio devices", "error", err)
	}
	g.ui.UpdateState(ui.StateLoadAudio, "Audio initialized")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if g.ui.ShutdownPressed() {
			g.log.Info("shutdown requested")
			return nil
		}
		if err := g.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.log.Error("assistant cycle failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
	}
}

// cycle is one pass: due alarm playback, wake phrase wait, conversation.
func (g *Gate) cycle(ctx context.Context) error {
	if item := g.store.PopDue(time.Now()); item != nil {
		g.ui.UpdateState(ui.StateTalking, "Playing scheduled audio")
		if err := g.player.PlayFile(item.Path, item.DeleteAfterPlay, g.ui.CancelPressed); err != nil {
			g.log.Error("failed to play scheduled audio", "name", item.Name, "error", err)
		}
	}

	g.ui.UpdateState(ui.StateSleeping, "Listening for wake word")
	woke, err := g.listenForWake(ctx)
	if err != nil {
		return err
	}
	if !woke {
		// Either a timer came due or we are shutting down; the next cycle
		// sorts it out.
		return nil
	}

	g.log.Info("wake word detected")
	session := realtime.NewSession(realtime.Options{
		APIKey:         g.cfg.OpenAIAPIKey,
		Instructions:   g.instructions,
		Voice:          g.cfg.AgentVoice,
		InputDeviceID:  g.cfg.InputDeviceID,
		OutputDeviceID: g.cfg.OutputDeviceID,
	}, g.registry, g.store, g.ui, g.log)
	return session.Run(ctx)
}

// listenForWake blocks reading microphone frames through the wake word
// engine. It returns true when the wake phrase was heard, false when the wait
// should end for another reason.
func (g *Gate) listenForWake(ctx context.Context) (woke bool, err error) {
	detector, err := wake.NewDetector(g.cfg.PicoAPIKey, g.cfg.WakeWordPath)
	if err != nil {
		return false, err
	}
	defer func() {
		if closeErr := detector.Close(); closeErr != nil {
			g.log.Error("failed to release wake word engine", "error", closeErr)
		}
	}()

	listener, err := audio.NewListener(g.cfg.InputDeviceID, detector.SampleRate(), detector.FrameLength())
	if err != nil {
		return false, err
	}
	defer listener.Close()

	nextTimerUpdate := time.Now().Add(time.Second)
	for {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if g.ui.ShutdownPressed() {
			return false, nil
		}

		frame, err := listener.Read()
		if err != nil {
			return false, fmt.Errorf("wake word capture failed: %w", err)
		}
		detected, err := detector.Detect(frame)
		if err != nil {
			return false, err
		}
		if detected {
			return true, nil
		}

		if g.store.HasDue(time.Now()) {
			return false, nil
		}
		if now := time.Now(); now.After(nextTimerUpdate) {
			nextTimerUpdate = now.Add(time.Second)
			if g.store.HasAny() {
				g.ui.SetTimerText(g.store.RenderText(now))
			}
		}
	}
}

// waitForInternet polls until the OpenAI endpoint answers. Any HTTP response
// counts; only transport failures mean we are offline.
func (g *Gate) waitForInternet(ctx context.Context) {
	client := &http.Client{Timeout: 10 * time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, connectivityProbeURL, nil)
		if err != nil {
			return
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			return
		}
		g.log.Info("waiting for internet connection", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff):
		}
	}
}
