package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerSetSchedulesPlaceholderAudio(t *testing.T) {
	deps := testDeps(t)
	tool := newTimerSetTool(deps)
	// An empty voice disables the background TTS swap; the placeholder
	// path is the behavior under test.
	tool.voice = ""

	result := tool.Handle("set_timer", `{"name":"Pasta","due_seconds":120}`)
	assert.Equal(t, "Set a pasta timer for 120 seconds.", result)

	require.True(t, deps.Store.HasAny())
	item := deps.Store.PopDue(time.Now().Add(3 * time.Minute))
	require.NotNil(t, item)
	assert.Equal(t, "pasta", item.Name)
	assert.True(t, item.DeleteAfterPlay)

	info, err := os.Stat(item.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44), "placeholder must be a non-empty WAV")
	os.Remove(item.Path)
}

func TestTimerSetRejectsBadArguments(t *testing.T) {
	tool := newTimerSetTool(testDeps(t))

	assert.Equal(t, "Invalid arguments payload", tool.Handle("set_timer", "not json"))
	assert.Equal(t, "Missing required argument: name", tool.Handle("set_timer", `{"due_seconds":5}`))
	assert.Equal(t, "Missing required argument: due_seconds", tool.Handle("set_timer", `{"name":"x"}`))
	assert.Empty(t, tool.Handle("some_other_tool", `{}`))
}

func TestTimerDeleteRemovesCaseInsensitively(t *testing.T) {
	deps := testDeps(t)
	deps.Store.Add(time.Now().Add(time.Minute), filepath.Join(t.TempDir(), "a.wav"), "pasta", false)

	tool := newTimerDeleteTool(deps)
	result := tool.Handle("delete_timer", `{"name":"Pasta"}`)

	assert.Equal(t, "Removed timer Pasta", result)
	assert.False(t, deps.Store.HasAny())
}

func TestTimerListReportsJSON(t *testing.T) {
	deps := testDeps(t)
	deps.Store.Add(time.Now().Add(time.Minute), "/tmp/a.wav", "pasta", false)

	tool := newTimerListTool(deps)
	out := tool.Handle("list_timers", `{}`)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "pasta", entries[0]["Name"])
}

func TestCheeseAlternatesDaily(t *testing.T) {
	deps := testDeps(t)
	deps.Config.KidNameA = "Ada"
	deps.Config.KidNameB = "Ben"
	tool := newCheeseTool(deps)

	today := tool.Handle("cheese", `{}`)
	assert.Contains(t, []string{"Ada", "Ben"}, today)
}

func TestCheeseUnconfigured(t *testing.T) {
	tool := newCheeseTool(testDeps(t))

	assert.False(t, tool.IsConfigured())
	assert.Contains(t, tool.Handle("cheese", `{}`), "not configured")
}

func TestRecipesListsMarkdownOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bread.md"), []byte("# bread"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apple pie.MD"), []byte("# pie"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	deps := testDeps(t)
	deps.Config.RecipesFolder = dir
	tool := newRecipesTool(deps)

	require.True(t, tool.IsConfigured())
	out := tool.Handle(tool.Name(), `{}`)

	var files []string
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	assert.Equal(t, []string{"apple pie.MD", "Bread.md"}, files)
}

func TestRecipesEmptyFolderIsEmptyArray(t *testing.T) {
	deps := testDeps(t)
	deps.Config.RecipesFolder = t.TempDir()
	tool := newRecipesTool(deps)

	assert.Equal(t, "[]", tool.Handle(tool.Name(), `{}`))
}

func TestLightsParsesConfiguredLights(t *testing.T) {
	deps := testDeps(t)
	deps.Config.LifxAuthToken = "token"
	deps.Config.LifxLights = `{"Kitchen":"id:d073d5","Bedroom":"label:Bedroom"}`
	tool := newLightsTool(deps)

	require.True(t, tool.IsConfigured())
	out := tool.Handle(tool.Name(), `{"light_name":"hallway","light_state":"on"}`)
	assert.Contains(t, out, "I don't know a light called hallway")
	assert.Contains(t, out, "kitchen")
	assert.Contains(t, out, "bedroom")
}

func TestTransitConfigurationRequiresAllFields(t *testing.T) {
	deps := testDeps(t)
	deps.Config.BayArea511APIKey = "key"
	deps.Config.BayArea511Agency = "SF"
	tool := newTransitTool(deps)
	assert.False(t, tool.IsConfigured())

	deps.Config.BayArea511StopCode = "15553"
	deps.Config.BayArea511FriendlyName = "transit"
	tool = newTransitTool(deps)
	assert.True(t, tool.IsConfigured())
	assert.Equal(t, "next_transit", tool.Name())
}
