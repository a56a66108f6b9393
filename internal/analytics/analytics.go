package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Reporter posts simple usage events to an HTTP endpoint. It is disabled
// unless URL, source, and API key are all configured, and never surfaces
// failures to callers.
type Reporter struct {
	url        string
	source     string
	apiKey     string
	enabled    bool
	httpClient *http.Client
	log        *slog.Logger
}

func NewReporter(url, source, apiKey string, log *slog.Logger) *Reporter {
	url = strings.TrimSpace(url)
	source = strings.TrimSpace(source)
	apiKey = strings.TrimSpace(apiKey)
	return &Reporter{
		url:        url,
		source:     source,
		apiKey:     apiKey,
		enabled:    url != "" && source != "" && apiKey != "",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With("component", "analytics"),
	}
}

func (r *Reporter) Enabled() bool { return r.enabled }

// ReportEvent posts an event in the background. Does nothing when disabled.
func (r *Reporter) ReportEvent(category string) {
	if !r.enabled {
		return
	}
	go func() {
		if err := r.post(category); err != nil {
			r.log.Error("failed to report analytics event", "category", category, "error", err)
		}
	}()
}

func (r *Reporter) post(category string) error {
	body, err := json.Marshal(map[string]string{
		"Source":   r.source,
		"Category": category,
		"ApiKey":   r.apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	resp, err := r.httpClient.Post(r.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
