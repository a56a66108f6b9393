package tools

import (
	"strings"
	"time"
)

// cheeseTool answers whose cheese night it is, alternating daily between two
// configured kids.
type cheeseTool struct {
	kidA string
	kidB string
}

func newCheeseTool(d Deps) *cheeseTool {
	return &cheeseTool{
		kidA: strings.TrimSpace(d.Config.KidNameA),
		kidB: strings.TrimSpace(d.Config.KidNameB),
	}
}

func (t *cheeseTool) Name() string { return "cheese" }

func (t *cheeseTool) IsConfigured() bool {
	return t.kidA != "" && t.kidB != ""
}

func (t *cheeseTool) Manifest() Manifest {
	return Manifest{
		Name: t.Name(),
		Type: "function",
		Description: "Get's the kid whose cheese night it is today. This kid gets to be the " +
			"first to take cheese at dinner, and they also get to choose which chore to do, " +
			"like feeding the dog instead of the cat, so it's an advantage to have first " +
			"cheese for the day.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	}
}

func (t *cheeseTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}
	if t.kidA == "" || t.kidB == "" {
		return "Kid names are not configured. Please set KID_NAME_A and KID_NAME_B."
	}

	days := int(time.Since(time.Date(1970, 1, 1, 0, 0, 0, 0, time.Local)).Hours() / 24)
	if days%2 == 0 {
		return t.kidA
	}
	return t.kidB
}
