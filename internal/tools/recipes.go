package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aurora-assistant/internal/analytics"
)

// recipesTool lists the Markdown recipe files in the configured folder.
type recipesTool struct {
	dir       string
	analytics *analytics.Reporter
	log       *slog.Logger
}

func newRecipesTool(d Deps) *recipesTool {
	return &recipesTool{
		dir:       strings.TrimSpace(d.Config.RecipesFolder),
		analytics: d.Analytics,
		log:       d.Log.With("tool", "list_recipes"),
	}
}

func (t *recipesTool) Name() string { return "list_recipes" }

func (t *recipesTool) IsConfigured() bool {
	if t.dir == "" {
		return false
	}
	info, err := os.Stat(t.dir)
	return err == nil && info.IsDir()
}

func (t *recipesTool) Manifest() Manifest {
	return Manifest{
		Name:        t.Name(),
		Type:        "function",
		Description: "List available recipe filenames (Markdown .md) from the configured recipes folder.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	}
}

func (t *recipesTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		t.log.Error("failed to list recipes", "dir", t.dir, "error", err)
		return fmt.Sprintf("Failed to list recipes: %v", err)
	}

	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			files = append(files, entry.Name())
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i]) < strings.ToLower(files[j])
	})

	data, err := json.Marshal(files)
	if err != nil {
		return fmt.Sprintf("Failed to list recipes: %v", err)
	}

	t.analytics.ReportEvent("Recipe List")
	return string(data)
}
