package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/xmproxy/webapp/internal/config"
	"github.com/xmproxy/webapp/internal/eventbus"
	"github.com/xmproxy/webapp/internal/xmppconf"
)

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"service":        config.AppName,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": string(s.monitor.Last()),
	})
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getConfig(w, r)
	case http.MethodPost:
		s.saveConfig(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// maskRecord renders a record for clients with the password replaced by its
// length. The cleartext never leaves the daemon.
func maskRecord(record xmppconf.Record) map[string]any {
	masked := make(map[string]any, len(record))
	for _, key := range record.Keys() {
		if key == "pw" {
			masked["pw_length"] = len(record.StringVal("pw"))
			continue
		}
		masked[key] = record[key]
	}
	return masked
}

func (s *APIServer) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"config": maskRecord(s.store.Load()),
	})
}

type saveConfigRequest struct {
	Config  map[string]any `json:"config"`
	Restart bool           `json:"restart"`
}

func (s *APIServer) saveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Config == nil {
		writeError(w, http.StatusBadRequest, "config is required")
		return
	}

	record := xmppconf.FromValues(req.Config)
	if err := record.Validate(); err != nil {
		var verr *xmppconf.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Field: verr.Field})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.Save(record, true); err != nil {
		log.Printf("[APIServer] config save failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}
	s.publishConfigSaved("save")

	response := map[string]any{
		"success": true,
		"message": "Configuration saved",
	}

	if req.Restart {
		result := s.restarter.Restart()
		response["restart"] = result
		if !result.Succeeded() {
			response["message"] = "Configuration saved, restart failed"
		} else {
			response["message"] = "Configuration saved and service restarted"
		}
	}

	s.monitor.Force()
	writeJSON(w, http.StatusOK, response)
}

func (s *APIServer) handleServiceRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result := s.restarter.Restart()
	s.monitor.Force()

	if !result.Succeeded() {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   result.Message,
			"restart": result,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": result.Message,
		"restart": result,
	})
}

func (s *APIServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.setConnection(w, r, "online")
}

func (s *APIServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.setConnection(w, r, "offline")
}

func (s *APIServer) setConnection(w http.ResponseWriter, r *http.Request, target string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.control.SetOnlineStatus(target); err != nil {
		log.Printf("[APIServer] set_online_status %s failed: %v", target, err)
		writeError(w, http.StatusBadGateway, "relay did not accept the request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  string(s.monitor.Force()),
	})
}

func (s *APIServer) publishConfigSaved(operation string) {
	s.bus.Publish(eventbus.Envelope{
		Topic:   eventbus.TopicConfigSaved,
		Source:  eventbus.SourceConfigAPI,
		Payload: eventbus.ConfigSavedEvent{Operation: operation},
	})
}
