package tools

import (
	"log/slog"

	"aurora-assistant/internal/analytics"
	"aurora-assistant/internal/config"
	"aurora-assistant/internal/schedule"
)

// SleepToolName is reserved: it is always advertised to the model but never
// satisfied by a registered tool. The session handles it itself to end the
// conversation.
const SleepToolName = "go_to_sleep"

// Manifest describes a callable function advertised to the realtime model.
type Manifest struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SleepManifest returns the manifest for the reserved sleep tool.
func SleepManifest() Manifest {
	return Manifest{
		Name:        SleepToolName,
		Type:        "function",
		Description: "Puts the assistant to sleep and ends the current session.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	}
}

// Tool is the capability every command handler implements. Handle returns ""
// when the call is not for this tool; anything else, including a spoken error
// description, short-circuits dispatch.
type Tool interface {
	Name() string
	IsConfigured() bool
	Manifest() Manifest
	Handle(toolName, arguments string) string
}

// Deps is everything a tool constructor may need. Constructors take the whole
// bundle so the registry list stays a flat, explicit enumeration.
type Deps struct {
	Config    config.Config
	Store     *schedule.Store
	Analytics *analytics.Reporter
	Log       *slog.Logger
}

// Constructor builds one tool from the shared dependencies.
type Constructor func(deps Deps) Tool

// DefaultConstructors is the static list of every available tool. Adding a
// tool means adding a line here; there is no runtime discovery.
func DefaultConstructors() []Constructor {
	return []Constructor{
		func(d Deps) Tool { return newTimerSetTool(d) },
		func(d Deps) Tool { return newTimerDeleteTool(d) },
		func(d Deps) Tool { return newTimerListTool(d) },
		func(d Deps) Tool { return newCheeseTool(d) },
		func(d Deps) Tool { return newLightsTool(d) },
		func(d Deps) Tool { return newListAddTool(d) },
		func(d Deps) Tool { return newTransitTool(d) },
		func(d Deps) Tool { return newSearchTool(d) },
		func(d Deps) Tool { return newRecipesTool(d) },
	}
}
