package tools

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const lifxBaseURL = "https://api.lifx.com/v1"

// lightsTool turns LIFX bulbs on or off by friendly name. The LIFX_LIGHTS
// setting maps friendly names to LIFX selectors.
type lightsTool struct {
	authToken  string
	lights     map[string]string // friendly name (lowercase) -> selector
	httpClient *http.Client
	log        *slog.Logger
}

func newLightsTool(d Deps) *lightsTool {
	t := &lightsTool{
		authToken:  strings.TrimSpace(d.Config.LifxAuthToken),
		lights:     make(map[string]string),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        d.Log.With("tool", "control_light"),
	}

	raw := strings.TrimSpace(d.Config.LifxLights)
	if raw == "" {
		return t
	}
	if !gjson.Valid(raw) {
		t.log.Error("invalid LIFX_LIGHTS JSON, tool disabled")
		return t
	}
	gjson.Parse(raw).ForEach(func(key, value gjson.Result) bool {
		t.lights[strings.ToLower(key.String())] = value.String()
		return true
	})
	return t
}

func (t *lightsTool) Name() string { return "control_light" }

func (t *lightsTool) IsConfigured() bool {
	if t.authToken == "" {
		t.log.Info("tool disabled: LIFX auth token not configured (LIFX_AUTH_TOKEN)")
		return false
	}
	if len(t.lights) == 0 {
		t.log.Info("tool disabled: no lights configured (LIFX_LIGHTS)")
		return false
	}
	return true
}

func (t *lightsTool) Manifest() Manifest {
	return Manifest{
		Name:        t.Name(),
		Type:        "function",
		Description: "Turns a light on or off by name",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"light_name": map[string]any{
					"type":        "string",
					"description": "The name of a light, i.e. cupboard, hallway, living room",
				},
				"light_state": map[string]any{
					"type":        "string",
					"enum":        []string{"on", "off"},
					"description": "The desired state of the light, on or off.",
				},
			},
			"required": []string{"light_name", "light_state"},
		},
	}
}

func (t *lightsTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}
	if !gjson.Valid(arguments) {
		return "Invalid arguments payload"
	}

	lightName := strings.ToLower(strings.TrimSpace(gjson.Get(arguments, "light_name").String()))
	lightState := strings.ToLower(strings.TrimSpace(gjson.Get(arguments, "light_state").String()))
	if lightName == "" {
		return "Missing required argument: light_name"
	}
	if lightState != "on" && lightState != "off" {
		return "Invalid light_state; must be 'on' or 'off'"
	}

	selector, ok := t.lights[lightName]
	if !ok {
		known := make([]string, 0, len(t.lights))
		for name := range t.lights {
			known = append(known, name)
		}
		return fmt.Sprintf("I don't know a light called %s. Known lights: %s", lightName, strings.Join(known, ", "))
	}

	url := fmt.Sprintf("%s/lights/%s/state", lifxBaseURL, selector)
	body := strings.NewReader(fmt.Sprintf(`{"power":%q}`, lightState))
	req, err := http.NewRequest(http.MethodPut, url, body)
	if err != nil {
		return fmt.Sprintf("Failed to control the %s light: %v", lightName, err)
	}
	req.Header.Set("Authorization", "Bearer "+t.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Error("LIFX request failed", "light", lightName, "error", err)
		return fmt.Sprintf("Failed to control the %s light: %v", lightName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		t.log.Error("LIFX returned an error", "light", lightName, "status", resp.StatusCode, "response", string(payload))
		return fmt.Sprintf("Failed to control the %s light (status %d)", lightName, resp.StatusCode)
	}
	return fmt.Sprintf("Turned the %s light %s", lightName, lightState)
}
