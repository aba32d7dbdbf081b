package steward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Actor executes corrective actions via the admin API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Act carries out a decision. "none" and "alert" make no request.
func (a *Actor) Act(ctx context.Context, d Decision) error {
	switch d.Action {
	case ActionSave:
		return a.post(ctx, "/api/v1/save", nil)
	case ActionSlow:
		return a.post(ctx, "/api/v1/speed", map[string]float64{"speed": d.Speed})
	case ActionNone, ActionAlert:
		return nil
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
}

// SetAutosave changes the engine's autosave interval.
func (a *Actor) SetAutosave(ctx context.Context, seconds int) error {
	return a.post(ctx, "/api/v1/settings", map[string]int{"autosave_seconds": seconds})
}

func (a *Actor) post(ctx context.Context, path string, payload any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s failed (%d): %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}
