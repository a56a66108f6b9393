package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"aurora-assistant/internal/audio"
	"aurora-assistant/internal/schedule"
)

const (
	placeholderSampleRate = 24000
	ttsTimeout            = 2 * time.Minute
)

// alarmScript is the escalating spoken alarm, with the timer name spliced in.
const alarmScript = "beep beep beep beep this is your %[1]s timer " +
	"beep beep beep beep this is your %[1]s timer " +
	"beep beep beep beep it's still alarming " +
	"beep beep beep beep push my button to switch this off " +
	"BEEP BEEP BEEP BEEP last %[1]s timer warning " +
	"BEEP BEEP BEEP BEEP BEEP BEEP BEEP BEEP " +
	"ok, that's it, I tried my best - hope the %[1]s timer wasn't important"

// timerSetTool schedules a named timer. A locally synthesized beep is
// scheduled immediately so the timer always has playable audio; the spoken
// alarm generated by OpenAI TTS replaces it in the background when ready.
type timerSetTool struct {
	store  *schedule.Store
	client openai.Client
	voice  string
	log    *slog.Logger
}

func newTimerSetTool(d Deps) *timerSetTool {
	return &timerSetTool{
		store:  d.Store,
		client: openai.NewClient(option.WithAPIKey(d.Config.OpenAIAPIKey)),
		voice:  d.Config.AgentVoice,
		log:    d.Log.With("tool", "set_timer"),
	}
}

func (t *timerSetTool) Name() string { return "set_timer" }

func (t *timerSetTool) IsConfigured() bool { return true }

func (t *timerSetTool) Manifest() Manifest {
	return Manifest{
		Name:        t.Name(),
		Type:        "function",
		Description: "Set a named timer that is due after a number of seconds.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "A short human-friendly name for the timer",
				},
				"due_seconds": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"description": "Number of seconds from now when the timer should be due",
				},
			},
			"required": []string{"name", "due_seconds"},
		},
	}
}

func (t *timerSetTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}
	if !gjson.Valid(arguments) {
		return "Invalid arguments payload"
	}

	name := strings.ToLower(strings.TrimSpace(gjson.Get(arguments, "name").String()))
	if name == "" {
		return "Missing required argument: name"
	}
	dueSeconds := gjson.Get(arguments, "due_seconds").Int()
	if dueSeconds < 1 {
		return "Missing required argument: due_seconds"
	}
	due := time.Now().Add(time.Duration(dueSeconds) * time.Second)

	placeholder, err := t.writePlaceholder()
	if err != nil {
		t.log.Error("failed to write placeholder alarm", "timer", name, "error", err)
		return fmt.Sprintf("Failed to set timer %s: %v", name, err)
	}
	t.store.Add(due, placeholder, name, true)
	t.log.Info("scheduled timer", "timer", name, "due", due)

	// No voice means no spoken alarm; the beep placeholder stays.
	if t.voice != "" {
		go t.generateAlarm(name)
	}

	return fmt.Sprintf("Set a %s timer for %d seconds.", name, dueSeconds)
}

func (t *timerSetTool) writePlaceholder() (string, error) {
	path := randomFilename(os.TempDir(), "wav")
	samples := audio.SynthesizeBeep(placeholderSampleRate, 8)
	if err := audio.SaveToWAV(path, samples, placeholderSampleRate); err != nil {
		return "", err
	}
	return path, nil
}

// generateAlarm runs in the background; on success it swaps the spoken alarm
// in for the beep placeholder, preserving the due time. If the timer has
// already fired or been deleted, the generated file is discarded.
func (t *timerSetTool) generateAlarm(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), ttsTimeout)
	defer cancel()

	resp, err := t.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel("tts-1-hd"),
		Input:          fmt.Sprintf(alarmScript, name),
		Voice:          openai.AudioSpeechNewParamsVoice(t.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat("wav"),
	})
	if err != nil {
		t.log.Error("failed to generate alarm audio", "timer", name, "error", err)
		return
	}
	defer resp.Body.Close()

	path := randomFilename(os.TempDir(), "wav")
	file, err := os.Create(path)
	if err != nil {
		t.log.Error("failed to create alarm file", "timer", name, "error", err)
		return
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(path)
		t.log.Error("failed to write alarm file", "timer", name, "error", err)
		return
	}
	file.Close()

	if !t.store.Replace(name, path, true) {
		os.Remove(path)
		t.log.Debug("timer gone before alarm audio was ready", "timer", name)
		return
	}
	t.log.Info("alarm audio ready", "timer", name, "path", path)
}

func randomFilename(dir, extension string) string {
	for {
		path := filepath.Join(dir, uuid.NewString()+"."+extension)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}

// timerDeleteTool removes a named timer and its audio.
type timerDeleteTool struct {
	store *schedule.Store
}

func newTimerDeleteTool(d Deps) *timerDeleteTool {
	return &timerDeleteTool{store: d.Store}
}

func (t *timerDeleteTool) Name() string { return "delete_timer" }

func (t *timerDeleteTool) IsConfigured() bool { return true }

func (t *timerDeleteTool) Manifest() Manifest {
	return Manifest{
		Name:        t.Name(),
		Type:        "function",
		Description: "Delete a named timer if it exists.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "The name of the timer to delete",
				},
			},
			"required": []string{"name"},
		},
	}
}

func (t *timerDeleteTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}
	if !gjson.Valid(arguments) {
		return "Invalid arguments payload"
	}
	name := strings.TrimSpace(gjson.Get(arguments, "name").String())
	if name == "" {
		return "Missing required argument: name"
	}
	t.store.RemoveByName(strings.ToLower(name))
	return fmt.Sprintf("Removed timer %s", name)
}

// timerListTool reports the scheduled timers as JSON for the model to read.
type timerListTool struct {
	store *schedule.Store
}

func newTimerListTool(d Deps) *timerListTool {
	return &timerListTool{store: d.Store}
}

func (t *timerListTool) Name() string { return "list_timers" }

func (t *timerListTool) IsConfigured() bool { return true }

func (t *timerListTool) Manifest() Manifest {
	return Manifest{
		Name:        t.Name(),
		Type:        "function",
		Description: "List the currently scheduled timers in a human-friendly format.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	}
}

func (t *timerListTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}
	return t.store.RenderJSON()
}
