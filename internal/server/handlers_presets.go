package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/xmproxy/webapp/internal/xmppconf"
)

func (s *APIServer) handlePresets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPresets(w, r)
	case http.MethodPost:
		s.savePreset(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *APIServer) listPresets(w http.ResponseWriter, _ *http.Request) {
	names, err := s.store.ListPresets()
	if err != nil {
		log.Printf("[APIServer] preset listing failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list presets")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": names})
}

type savePresetRequest struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

func (s *APIServer) savePreset(w http.ResponseWriter, r *http.Request) {
	var req savePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "preset name is required")
		return
	}
	if req.Config == nil {
		writeError(w, http.StatusBadRequest, "config is required")
		return
	}

	saved, err := s.store.SavePreset(req.Name, xmppconf.FromValues(req.Config))
	if err != nil {
		log.Printf("[APIServer] preset save failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save preset")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"name":    saved,
	})
}

// handlePresetByName serves GET and DELETE on /api/presets/{name}.
func (s *APIServer) handlePresetByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/presets/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		record, err := s.store.LoadPreset(name)
		if err != nil {
			if errors.Is(err, xmppconf.ErrPresetNotFound) {
				writeError(w, http.StatusNotFound, "preset not found")
				return
			}
			log.Printf("[APIServer] preset load failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load preset")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":   name,
			"config": maskRecord(record),
		})
	case http.MethodDelete:
		if !s.store.DeletePreset(name) {
			writeError(w, http.StatusNotFound, "preset not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *APIServer) handleBackups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	backups, err := s.store.ListBackups()
	if err != nil {
		log.Printf("[APIServer] backup listing failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []xmppconf.BackupInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": backups})
}

// handleBackupRestore serves POST /api/backups/{name}/restore.
func (s *APIServer) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/backups/")
	name, ok := strings.CutSuffix(rest, "/restore")
	if !ok || name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}

	if err := s.store.RestoreBackup(name); err != nil {
		if errors.Is(err, xmppconf.ErrBackupNotFound) {
			writeError(w, http.StatusNotFound, "backup not found")
			return
		}
		log.Printf("[APIServer] backup restore failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to restore backup")
		return
	}
	s.publishConfigSaved("restore")
	s.monitor.Force()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Backup restored",
	})
}
