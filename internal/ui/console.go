package ui

import (
	"log/slog"
	"sync"
)

// Console is a debug UI backend that logs state transitions and timer text.
// Buttons are never pressed.
type Console struct {
	mu        sync.Mutex
	state     State
	timerText string
	log       *slog.Logger
}

func NewConsole(log *slog.Logger) *Console {
	return &Console{state: StateLoadStart, log: log.With("component", "ui")}
}

func (c *Console) UpdateState(state State, reason string) {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.mu.Unlock()

	if reason != "" {
		c.log.Info("UI state", "from", prev.String(), "to", state.String(), "reason", reason)
	} else {
		c.log.Info("UI state", "from", prev.String(), "to", state.String())
	}
}

func (c *Console) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Console) SetTimerText(text string) {
	c.mu.Lock()
	c.timerText = text
	c.mu.Unlock()

	if text == "" {
		c.log.Debug("timer text cleared")
	} else {
		c.log.Debug("timer text", "text", text)
	}
}

func (c *Console) TimerText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerText
}

func (c *Console) CancelPressed() bool { return false }

func (c *Console) ShutdownPressed() bool { return false }

func (c *Console) Shutdown() {}
