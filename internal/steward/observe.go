// Package steward implements an out-of-process watchdog for the idle engine.
// It observes engine state via the API, decides on a corrective action with
// deterministic rules, and acts via the admin endpoints.
package steward

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/idle-engine/internal/engine"
)

// Snapshot holds all data collected during an observation cycle.
type Snapshot struct {
	Status   engine.Status  `json:"status"`
	Offline  string         `json:"offline,omitempty"`
	Settings Settings       `json:"settings"`
	Events   []engine.Event `json:"events"`
	At       time.Time      `json:"at"`
}

// Settings mirrors GET /api/v1/settings.
type Settings struct {
	AutosaveSeconds int `json:"autosave_seconds"`
}

// statusResponse mirrors GET /api/v1/status.
type statusResponse struct {
	Status  engine.Status `json:"status"`
	Offline string        `json:"offline"`
}

// Observer fetches engine state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches status, settings and recent events.
func (o *Observer) Observe(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{At: time.Now()}

	var status statusResponse
	if err := o.fetchJSON(ctx, "/api/v1/status", &status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	snap.Status = status.Status
	snap.Offline = status.Offline

	if err := o.fetchJSON(ctx, "/api/v1/settings", &snap.Settings); err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/events?limit=50", &snap.Events); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	return snap, nil
}

// Ready reports whether the status endpoint answers 200.
func (o *Observer) Ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/v1/status", nil)
	if err != nil {
		return false
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
