// Package client wraps the webapp daemon's HTTP API for the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/xmproxy/webapp/internal/xmppconf"
)

const (
	defaultBaseURL = "http://127.0.0.1:8006"

	defaultTimeout = 10 * time.Second
	// Restart-triggering calls block until the restart attempt finishes,
	// which can take the full script timeout plus verification polling.
	restartTimeout = 2 * time.Minute

	maxErrorBody = 8 << 10
)

// ErrNotFound indicates the named preset or backup does not exist.
var ErrNotFound = errors.New("not found")

// SaveResult reports the outcome of a saveConfig call.
type SaveResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Restart *RestartResult `json:"restart,omitempty"`
}

// RestartResult mirrors the daemon's restart outcome payload.
type RestartResult struct {
	Strategy string `json:"strategy"`
	State    string `json:"state"`
	Message  string `json:"message"`
}

// HealthInfo is the daemon's /health payload.
type HealthInfo struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client. An empty baseURL falls back to the
// XMPROXY_WEBAPP_URL environment variable and then to the local daemon.
func New(baseURL string) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("XMPROXY_WEBAPP_URL"))
	}
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		// Per-request timeouts via context; restart calls need more than a
		// flat client-wide deadline allows.
		httpClient: &http.Client{},
	}
}

// BaseURL returns the daemon endpoint this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health fetches the daemon health summary.
func (c *Client) Health() (HealthInfo, error) {
	var info HealthInfo
	err := c.call(http.MethodGet, "/health", nil, defaultTimeout, &info)
	return info, err
}

// Status returns the relay status as last observed by the daemon.
func (c *Client) Status() (string, error) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.call(http.MethodGet, "/api/status", nil, defaultTimeout, &payload); err != nil {
		return "", err
	}
	return payload.Status, nil
}

// GetConfig returns the relay configuration with the password masked.
func (c *Client) GetConfig() (map[string]any, error) {
	var payload struct {
		Config map[string]any `json:"config"`
	}
	if err := c.call(http.MethodGet, "/api/config", nil, defaultTimeout, &payload); err != nil {
		return nil, err
	}
	return payload.Config, nil
}

// SaveConfig persists the configuration, optionally restarting the relay.
func (c *Client) SaveConfig(config xmppconf.Record, restart bool) (SaveResult, error) {
	body := map[string]any{
		"config":  config,
		"restart": restart,
	}
	timeout := defaultTimeout
	if restart {
		timeout = restartTimeout
	}
	var result SaveResult
	err := c.call(http.MethodPost, "/api/config", body, timeout, &result)
	return result, err
}

// ListPresets returns the stored preset names.
func (c *Client) ListPresets() ([]string, error) {
	var payload struct {
		Presets []string `json:"presets"`
	}
	if err := c.call(http.MethodGet, "/api/presets", nil, defaultTimeout, &payload); err != nil {
		return nil, err
	}
	return payload.Presets, nil
}

// GetPreset fetches one preset's masked configuration.
func (c *Client) GetPreset(name string) (map[string]any, error) {
	var payload struct {
		Config map[string]any `json:"config"`
	}
	if err := c.call(http.MethodGet, "/api/presets/"+url.PathEscape(name), nil, defaultTimeout, &payload); err != nil {
		return nil, err
	}
	return payload.Config, nil
}

// SavePreset stores a configuration under name and returns the name the
// daemon actually used after sanitization.
func (c *Client) SavePreset(name string, config xmppconf.Record) (string, error) {
	body := map[string]any{
		"name":   name,
		"config": config,
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := c.call(http.MethodPost, "/api/presets", body, defaultTimeout, &payload); err != nil {
		return "", err
	}
	return payload.Name, nil
}

// DeletePreset removes the named preset.
func (c *Client) DeletePreset(name string) error {
	return c.call(http.MethodDelete, "/api/presets/"+url.PathEscape(name), nil, defaultTimeout, nil)
}

// ListBackups returns the daemon's backups, newest first.
func (c *Client) ListBackups() ([]xmppconf.BackupInfo, error) {
	var payload struct {
		Backups []xmppconf.BackupInfo `json:"backups"`
	}
	if err := c.call(http.MethodGet, "/api/backups", nil, defaultTimeout, &payload); err != nil {
		return nil, err
	}
	return payload.Backups, nil
}

// RestoreBackup replaces the live configuration with the named backup.
func (c *Client) RestoreBackup(name string) error {
	return c.call(http.MethodPost, "/api/backups/"+url.PathEscape(name)+"/restore", nil, defaultTimeout, nil)
}

// RestartService asks the daemon to restart the relay and returns the
// terminal result. A failed restart is a result, not a transport error.
func (c *Client) RestartService() (RestartResult, error) {
	var payload struct {
		Success bool          `json:"success"`
		Error   string        `json:"error"`
		Restart RestartResult `json:"restart"`
	}
	err := c.call(http.MethodPost, "/api/service/restart", nil, restartTimeout, &payload)
	if err != nil {
		var apiErr *APIError
		// A 500 from this endpoint still carries the restart result.
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusInternalServerError && payload.Restart.State != "" {
			return payload.Restart, nil
		}
		return RestartResult{}, err
	}
	return payload.Restart, nil
}

// Connect asks the relay to go online. Returns the refreshed status.
func (c *Client) Connect() (string, error) {
	return c.setConnection("connect")
}

// Disconnect asks the relay to go offline. Returns the refreshed status.
func (c *Client) Disconnect() (string, error) {
	return c.setConnection("disconnect")
}

func (c *Client) setConnection(action string) (string, error) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.call(http.MethodPost, "/api/connection/"+action, nil, defaultTimeout, &payload); err != nil {
		return "", err
	}
	return payload.Status, nil
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// call performs one request, decoding a successful JSON response into out
// (which may be nil) and mapping failures to *APIError. For error responses
// with a decodable body, out is still populated so callers can inspect
// partial results.
func (c *Client) call(method, path string, body any, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if out != nil && len(data) > 0 {
		// Decode regardless of status so error responses carrying payloads
		// (restart results) reach the caller.
		_ = json.Unmarshal(data, out)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &APIError{StatusCode: resp.StatusCode, Message: apiErrorMessage(data, resp.Status)}
}

func apiErrorMessage(data []byte, fallback string) string {
	if len(data) > maxErrorBody {
		data = data[:maxErrorBody]
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			if msg := strings.TrimSpace(payload.Error); msg != "" {
				return msg
			}
		}
	}
	if trimmed != "" {
		return trimmed
	}
	return fallback
}
