package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xmproxy/webapp/internal/xmppconf"
)

func newStub(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL)
}

func writeStub(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestStatus(t *testing.T) {
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeStub(w, http.StatusOK, map[string]any{"status": "online"})
	})

	got, err := c.Status()
	if err != nil {
		t.Fatal(err)
	}
	if got != "online" {
		t.Errorf("Status = %s; want online", got)
	}
}

func TestSaveConfigSendsBody(t *testing.T) {
	var received map[string]any
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeStub(w, http.StatusOK, map[string]any{"success": true, "message": "Configuration saved"})
	})

	result, err := c.SaveConfig(xmppconf.Record{"user": "a@b", "pw": "x"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}

	cfg := received["config"].(map[string]any)
	if cfg["user"] != "a@b" {
		t.Errorf("sent config = %v", cfg)
	}
	if received["restart"] != false {
		t.Errorf("restart = %v; want false", received["restart"])
	}
}

func TestValidationErrorSurfaced(t *testing.T) {
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeStub(w, http.StatusBadRequest, map[string]any{"error": "Password is required", "field": "pw"})
	})

	_, err := c.SaveConfig(xmppconf.Record{"user": "a@b"}, false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v; want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Password is required" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestPresetNotFound(t *testing.T) {
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeStub(w, http.StatusNotFound, map[string]any{"error": "preset not found"})
	})

	_, err := c.GetPreset("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v; want ErrNotFound match", err)
	}
}

func TestRestartServiceFailureCarriesResult(t *testing.T) {
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeStub(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Service did not restart within timeout",
			"restart": map[string]any{"strategy": "fallback", "state": "failed", "message": "Service did not restart within timeout"},
		})
	})

	result, err := c.RestartService()
	if err != nil {
		t.Fatalf("err = %v; want result despite 500", err)
	}
	if result.State != "failed" || result.Strategy != "fallback" {
		t.Errorf("result = %+v", result)
	}
}

func TestDaemonUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Status()
	if err == nil {
		t.Fatal("expected error for unreachable daemon")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure mapped to APIError: %v", err)
	}
}

func TestListBackups(t *testing.T) {
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeStub(w, http.StatusOK, map[string]any{
			"backups": []map[string]any{
				{"name": "xmpp-login_20260102_030405.txt", "timestamp": "2026-01-02T03:04:05Z"},
			},
		})
	})

	backups, err := c.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 || backups[0].Name != "xmpp-login_20260102_030405.txt" {
		t.Errorf("backups = %+v", backups)
	}
}

func TestBaseURLDefaults(t *testing.T) {
	t.Setenv("XMPROXY_WEBAPP_URL", "")
	if got := New("").BaseURL(); got != defaultBaseURL {
		t.Errorf("BaseURL = %s; want %s", got, defaultBaseURL)
	}

	t.Setenv("XMPROXY_WEBAPP_URL", "http://10.0.0.5:8006/")
	if got := New("").BaseURL(); got != "http://10.0.0.5:8006" {
		t.Errorf("BaseURL = %s", got)
	}
}
