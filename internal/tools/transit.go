package tools

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const stopMonitoringURL = "https://api.511.org/transit/StopMonitoring"

var pacificTime = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// transitTool fetches predicted arrival times for one configured stop from
// the Bay Area 511 API. The tool name is derived from the friendly name so
// the model sees e.g. "next_38r_bus".
type transitTool struct {
	apiKey       string
	agency       string
	stopCode     string
	friendlyName string
	hasFriendly  bool
	name         string
	httpClient   *http.Client
	log          *slog.Logger
}

func newTransitTool(d Deps) *transitTool {
	friendly := strings.TrimSpace(d.Config.BayArea511FriendlyName)
	hasFriendly := friendly != ""
	if !hasFriendly {
		friendly = "transit"
	}
	return &transitTool{
		apiKey:       strings.TrimSpace(d.Config.BayArea511APIKey),
		agency:       strings.TrimSpace(d.Config.BayArea511Agency),
		stopCode:     strings.TrimSpace(d.Config.BayArea511StopCode),
		friendlyName: friendly,
		hasFriendly:  hasFriendly,
		name:         "next_" + sanitizeToolName(friendly),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          d.Log.With("tool", "next_transit"),
	}
}

func sanitizeToolName(friendly string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(friendly) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func (t *transitTool) Name() string { return t.name }

func (t *transitTool) IsConfigured() bool {
	return t.apiKey != "" && t.agency != "" && t.stopCode != "" && t.hasFriendly
}

func (t *transitTool) Manifest() Manifest {
	return Manifest{
		Name:        t.Name(),
		Type:        "function",
		Description: fmt.Sprintf("Get the predicted arrival time for the next %s.", t.friendlyName),
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		},
	}
}

func (t *transitTool) Handle(toolName, arguments string) string {
	if toolName != t.Name() {
		return ""
	}

	query := url.Values{}
	query.Set("api_key", t.apiKey)
	query.Set("agency", t.agency)
	query.Set("stopCode", t.stopCode)
	query.Set("Format", "json")

	resp, err := t.httpClient.Get(stopMonitoringURL + "?" + query.Encode())
	if err != nil {
		t.log.Error("failed to get transit prediction", "error", err)
		return fmt.Sprintf("Failed to get %s prediction: %v", t.friendlyName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.log.Error("failed to read transit response", "error", err)
		return fmt.Sprintf("Failed to get %s prediction: %v", t.friendlyName, err)
	}
	// The 511 API prepends a UTF-8 BOM to its JSON.
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	// The route is the first word of the friendly name, e.g. "38R bus" -> "38R".
	lineRef := strings.Fields(t.friendlyName)[0]
	now := time.Now().In(pacificTime)

	var arrivals []string
	visits := gjson.GetBytes(raw, "ServiceDelivery.StopMonitoringDelivery.MonitoredStopVisit")
	visits.ForEach(func(_, visit gjson.Result) bool {
		journey := visit.Get("MonitoredVehicleJourney")
		if journey.Get("LineRef").String() != lineRef {
			return true
		}
		expected := journey.Get("MonitoredCall.ExpectedArrivalTime").String()
		if expected == "" {
			return true
		}
		eta, err := time.Parse(time.RFC3339, expected)
		if err != nil {
			return true
		}
		minutes := eta.In(pacificTime).Sub(now).Minutes()
		arrivals = append(arrivals, fmt.Sprintf("%dmins", int(math.Round(minutes))))
		return true
	})

	if len(arrivals) == 0 {
		return fmt.Sprintf("No upcoming %s arrivals found.", t.friendlyName)
	}
	return strings.Join(arrivals, ", ")
}
