package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const todoistTasksURL = "https://api.todoist.com/rest/v2/tasks"

// listAddTool adds items to the Todoist to-do or shopping list. The tool
// loads with only an API key; project IDs can be configured later and are
// validated per call.
type listAddTool struct {
	apiKey            string
	todoProjectID     string
	shoppingProjectID string
	todoDue           string
	shoppingDue       string
	httpClient        *http.Client
	log               *slog.Logger
}

func newListAddTool(d Deps) *listAddTool {
	return &listAddTool{
		apiKey:            strings.TrimSpace(d.Config.TodoistAPIKey),
		todoProjectID:     strings.TrimSpace(d.Config.TodoistTodoProjectID),
		shoppingProjectID: strings.TrimSpace(d.Config.TodoistShoppingProjectID),
		todoDue:           d.Config.TodoistTodoDueDetails,
		shoppingDue:       d.Config.TodoistShoppingDueDetails,
		httpClient:        &http.Client{Timeout: 15 * time.Second},
		log:               d.Log.With("tool", "add_to_list"),
	}
}

func (t *listAddTool) Name() string { return "add_to_list" }

func (t *listAddTool) IsConfigured() bool { return t.apiKey != "" }

func (t *listAddTool) Manifest() Manifest {
	return Manifest{
		Name:        t.Name(),
		Type:        "function",
		Description: "Adds an item to the to do list or shopping list",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_name": map[string]any{
					"type":        "string",
					"description": "The name of the item to add to the list, i.e. 'bananas' or 'cut the cat's claws'",
				},
				"item_list": map[string]any{
					"type":        "string",
					"enum":        []string{"todo", "shopping"},
					"description": "The list to add to, either todo or shopping.",
				},
			},
			"required": []string{"item_name", "item_list"},
		},
	}
}

func (t *listAddTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}
	if !gjson.Valid(arguments) {
		return "Invalid arguments payload"
	}

	itemName := strings.TrimSpace(gjson.Get(arguments, "item_name").String())
	itemList := strings.ToLower(strings.TrimSpace(gjson.Get(arguments, "item_list").String()))
	if itemName == "" {
		return "Missing required argument: item_name"
	}
	if itemList == "" {
		return "Missing required argument: item_list"
	}

	var projectID, dueString string
	switch itemList {
	case "todo":
		projectID, dueString = t.todoProjectID, t.todoDue
		if projectID == "" {
			return "Todoist 'To Do' project is not configured"
		}
	case "shopping":
		projectID, dueString = t.shoppingProjectID, t.shoppingDue
		if projectID == "" {
			return "Todoist 'Shopping' project is not configured"
		}
	default:
		return "Invalid item_list; must be 'todo' or 'shopping'"
	}

	task := map[string]string{
		"content":    itemName,
		"project_id": projectID,
	}
	if dueString != "" {
		task["due_string"] = dueString
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Sprintf("Failed to call Todoist API: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, todoistTasksURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("Failed to call Todoist API: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Error("Todoist add task failed", "error", err)
		return fmt.Sprintf("Failed to call Todoist API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		t.log.Error("Todoist add task failed", "status", resp.StatusCode, "response", string(payload))
		return fmt.Sprintf("Failed to call Todoist API (status %d)", resp.StatusCode)
	}

	return fmt.Sprintf("%s added to %s", itemName, itemList)
}
