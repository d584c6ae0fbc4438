package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/gray-logic-gather/internal/bridges/gather"
	"github.com/nerrad567/gray-logic-gather/internal/settings"
)

// pairingResponse is the response body for the pairing endpoints.
type pairingResponse struct {
	HasToken bool `json:"has_token"`
}

// saveTokenRequest is the request body for POST /pairing/token.
type saveTokenRequest struct {
	Token string `json:"token"`
}

// settingsResponse is the response body for PUT /settings.
type settingsResponse struct {
	settings.Values
	ChangedKeys []string `json:"changed_keys"`
}

func (s *Server) handleGetPairing(w http.ResponseWriter, r *http.Request) {
	has, err := s.settings.HasToken(r.Context())
	if err != nil {
		s.logger.Error("reading token state failed", "error", err)
		writeInternalError(w, "failed to read pairing state")
		return
	}
	writeJSON(w, http.StatusOK, pairingResponse{HasToken: has})
}

// handleSaveToken stores a new Gather API key. The key is never echoed or
// logged.
func (s *Server) handleSaveToken(w http.ResponseWriter, r *http.Request) {
	var req saveTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeValidationError(w, "token is required")
		return
	}

	ctx := r.Context()
	// A token sealed under an old passphrase cannot be read; it is about
	// to be replaced, so the previous settings are reported as empty.
	old, err := s.settings.Resolve(ctx)
	if err != nil && !errors.Is(err, settings.ErrSealed) {
		s.logger.Error("resolving settings failed", "error", err)
		writeInternalError(w, "failed to read settings")
		return
	}

	if err := s.settings.SaveToken(ctx, token); err != nil {
		if errors.Is(err, settings.ErrNoPassphrase) {
			writeConflict(w, "credential passphrase is not configured")
			return
		}
		s.logger.Error("saving token failed", "error", err)
		writeInternalError(w, "failed to save token")
		return
	}

	updated, err := s.settings.Resolve(ctx)
	if err != nil {
		s.logger.Error("resolving settings failed", "error", err)
		writeInternalError(w, "failed to read settings")
		return
	}
	s.bridge.SettingsChanged(old, updated)

	writeJSON(w, http.StatusOK, pairingResponse{HasToken: true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	values, err := s.settings.Values(r.Context())
	if err != nil {
		s.logger.Error("reading settings failed", "error", err)
		writeInternalError(w, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// handleUpdateSettings stores the space id and avatar name. They take
// effect on the next connect.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settings.Values
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.SpaceID = strings.TrimSpace(req.SpaceID)
	req.AvatarName = strings.TrimSpace(req.AvatarName)

	old, updated, err := s.settings.Update(r.Context(), req)
	if err != nil {
		s.logger.Error("updating settings failed", "error", err)
		writeInternalError(w, "failed to update settings")
		return
	}
	s.bridge.SettingsChanged(old, updated)

	changed := gather.ChangedKeys(old, updated)
	if changed == nil {
		changed = []string{}
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		Values:      settings.Values{SpaceID: updated.SpaceID, AvatarName: updated.AvatarName},
		ChangedKeys: changed,
	})
}
