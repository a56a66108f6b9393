package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"aurora-assistant/internal/audio"
	"aurora-assistant/internal/schedule"
	"aurora-assistant/internal/tools"
	"aurora-assistant/internal/ui"
)

// Options configures one conversation session.
type Options struct {
	APIKey         string
	Instructions   string
	Voice          string
	InputDeviceID  int
	OutputDeviceID int
}

// Session is one full-duplex conversation: wake to sleep. It owns the
// websocket connection and the audio bridge for its lifetime; a fresh Session
// is created per conversation.
type Session struct {
	opts     Options
	registry *tools.Registry
	store    *schedule.Store
	ui       ui.UI
	log      *slog.Logger

	// micOpen is written by the receive loop and read by the capture
	// callback. Closed while the assistant is speaking.
	micOpen atomic.Bool
}

func NewSession(opts Options, registry *tools.Registry, store *schedule.Store, u ui.UI, log *slog.Logger) *Session {
	s := &Session{
		opts:     opts,
		registry: registry,
		store:    store,
		ui:       u,
		log:      log.With("component", "session"),
	}
	s.micOpen.Store(true)
	return s
}

// Run drives the conversation until the model calls go_to_sleep, the server
// closes the connection, or something fails. It always returns with the audio
// and network resources released.
func (s *Session) Run(ctx context.Context) error {
	var (
		client    *Client
		bridge    *audio.Bridge
		dialErr   error
		bridgeErr error
		wg        sync.WaitGroup
	)

	s.log.Info("connecting to the realtime API and opening audio streams")
	wg.Add(2)
	go func() {
		defer wg.Done()
		client, dialErr = Dial(ctx, s.opts.APIKey, s.log)
	}()
	go func() {
		defer wg.Done()
		bridge, bridgeErr = audio.NewBridge(s.opts.InputDeviceID, s.opts.OutputDeviceID, s.micOpen.Load, s.log)
	}()
	wg.Wait()

	if dialErr != nil || bridgeErr != nil {
		if client != nil {
			client.Close()
		}
		if bridge != nil {
			bridge.Close()
		}
		if dialErr != nil {
			return dialErr
		}
		return bridgeErr
	}

	stop := make(chan struct{})
	var stopOnce sync.Once
	defer func() {
		stopOnce.Do(func() { close(stop) })
		client.Close()
		bridge.Close()
		s.log.Info("conversation over")
	}()

	if err := client.Send(s.sessionUpdate()); err != nil {
		return fmt.Errorf("failed to configure session: %w", err)
	}
	if err := bridge.Start(); err != nil {
		return err
	}

	go s.sendAudioLoop(client, bridge, stop)
	go s.dueAudioLoop(client, stop)

	// Canceling the context unblocks the receive loop through the websocket.
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-stop:
		}
	}()

	s.log.Info("ready for conversation")
	s.ui.UpdateState(ui.StateListening, "Listening for user input")

	return s.receiveLoop(client, bridge)
}

func (s *Session) sessionUpdate() sessionUpdateEvent {
	return sessionUpdateEvent{
		Type: "session.update",
		Session: sessionConfig{
			Model: "gpt-realtime",
			Type:  "realtime",
			Audio: audioConfig{
				Input: audioInputConfig{
					Format:         audioFormat{Type: "audio/pcm", Rate: audio.RealtimeSampleRate},
					NoiseReduction: noiseReduction{Type: "far_field"},
					TurnDetection: turnDetection{
						CreateResponse:    true,
						InterruptResponse: true,
						Eagerness:         "auto",
						Type:              "semantic_vad",
					},
				},
				Output: audioOutputConfig{
					Format: audioFormat{Type: "audio/pcm", Rate: audio.RealtimeSampleRate},
					Speed:  1,
					Voice:  s.opts.Voice,
				},
			},
			Instructions:     s.opts.Instructions,
			OutputModalities: []string{"audio"},
			Tools:            s.registry.Manifests(),
			ToolChoice:       "auto",
		},
	}
}

// playback is the speaker side of the audio bridge as the receive loop sees
// it: ordered writes plus an end-of-response flush for the partial tail.
type playback interface {
	Play(pcm []byte) error
	Flush() error
}

// receiveLoop processes server events until the session ends. Returning nil
// means a controlled end: the sleep tool was called or the server closed
// normally.
func (s *Session) receiveLoop(client *Client, out playback) error {
	for {
		event, err := client.ReadEvent()
		if err != nil {
			return err
		}
		if event == nil {
			return nil
		}

		switch event.Type {
		case "error":
			if event.Error != nil {
				s.log.Warn("realtime error", "code", event.Error.Code, "message", event.Error.Message)
			}

		case "response.created":
			s.micOpen.Store(false)
			s.ui.UpdateState(ui.StateTalking, "Assistant responding")

		case "response.done":
			if err := out.Flush(); err != nil {
				return err
			}
			s.micOpen.Store(true)
			if s.ui.State() != ui.StateToolCalling {
				s.ui.UpdateState(ui.StateListening, "Assistant finished")
			}

		case "response.output_audio.delta":
			if event.Delta == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(event.Delta)
			if err != nil {
				s.log.Warn("failed to decode audio delta", "error", err)
				continue
			}
			if err := out.Play(pcm); err != nil {
				return err
			}

		case "response.function_call_arguments.done":
			s.ui.UpdateState(ui.StateToolCalling, "Starting a tool call")
			if event.Name == tools.SleepToolName {
				s.log.Info("asked to go to sleep, ending session")
				return nil
			}
			if err := s.handleToolCall(client, event); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleToolCall(client *Client, event *serverEvent) error {
	output := s.registry.Dispatch(event.Name, event.Arguments)
	if output == "" {
		s.log.Warn("no tool claimed function call", "function", event.Name)
		output = fmt.Sprintf("No tool is available to handle %s.", event.Name)
	} else {
		s.log.Info("handled function call", "function", event.Name)
	}

	if err := client.Send(functionCallOutputItem(event.CallID, output)); err != nil {
		return fmt.Errorf("failed to send tool output: %w", err)
	}
	// Force the model to speak the result.
	if err := client.Send(responseCreateEvent{Type: "response.create"}); err != nil {
		return fmt.Errorf("failed to request response: %w", err)
	}
	return nil
}

// sendAudioLoop streams gated microphone frames to the server. Send failures
// are dropped; the receive loop surfaces the terminal error.
func (s *Session) sendAudioLoop(client *Client, bridge *audio.Bridge, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case frame := <-bridge.Frames():
			event := audioAppendEvent{
				Type:  "input_audio_buffer.append",
				Audio: base64.StdEncoding.EncodeToString(frame),
			}
			if err := client.Send(event); err != nil {
				s.log.Debug("failed to send audio frame", "error", err)
			}
		}
	}
}

// dueAudioLoop watches the schedule while a conversation is running. A due
// item cannot play until the session releases the speaker, so the model is
// nudged to call go_to_sleep: a polite ask first, a firm one a second later.
// Otherwise the countdown on the display is kept fresh.
func (s *Session) dueAudioLoop(client *Client, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := time.Now()
			if s.store.HasDue(now) {
				s.sendSleepNudge(client, "Call the go_to_sleep function")
				select {
				case <-stop:
					return
				case <-time.After(time.Second):
				}
				s.sendSleepNudge(client, "This is important - you need to go to sleep now.")
			} else if s.store.HasAny() {
				s.ui.SetTimerText(s.store.RenderText(now))
			}
		}
	}
}

func (s *Session) sendSleepNudge(client *Client, text string) {
	if err := client.Send(userTextItem(text)); err != nil {
		s.log.Debug("failed to send sleep nudge", "error", err)
		return
	}
	if err := client.Send(responseCreateEvent{Type: "response.create"}); err != nil {
		s.log.Debug("failed to request response for sleep nudge", "error", err)
	}
}
