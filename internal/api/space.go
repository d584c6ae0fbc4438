package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-gather/internal/automation"
	"github.com/nerrad567/gray-logic-gather/internal/bridges/gather"
)

// conditionResponse is the response body for GET /conditions/{name}.
type conditionResponse struct {
	Name   string `json:"name"`
	Result bool   `json:"result"`
}

// actionResponse is the response body for POST /actions/{name}.
type actionResponse struct {
	Action string `json:"action"`
	Status string `json:"status"`
}

// handleGetSpace returns the bridge status: connection state, self, area
// and presence flags.
func (s *Server) handleGetSpace(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Status())
}

// handleListCards returns every registered flow card grouped by kind.
func (s *Server) handleListCards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"triggers":   s.cards.Triggers(),
		"conditions": s.cards.Conditions(),
		"actions":    s.cards.Actions(),
	})
}

func (s *Server) handleListConditions(w http.ResponseWriter, _ *http.Request) {
	conditions := s.cards.Conditions()
	writeJSON(w, http.StatusOK, map[string]any{
		"conditions": conditions,
		"count":      len(conditions),
	})
}

// handleEvaluateCondition evaluates one condition against the live space.
func (s *Server) handleEvaluateCondition(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := s.cards.Evaluate(r.Context(), name)
	if err != nil {
		if errors.Is(err, automation.ErrUnknownCondition) {
			writeNotFound(w, "unknown condition: "+name)
			return
		}
		s.logger.Error("condition evaluation failed", "condition", name, "error", err)
		writeInternalError(w, "failed to evaluate condition")
		return
	}

	writeJSON(w, http.StatusOK, conditionResponse{Name: name, Result: result})
}

// handleRunAction runs an action. The optional JSON body is passed to the
// action as parameters.
func (s *Server) handleRunAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.cards.Run(r.Context(), name, params); err != nil {
		switch {
		case errors.Is(err, automation.ErrUnknownAction):
			writeNotFound(w, "unknown action: "+name)
		case errors.Is(err, gather.ErrConfiguration):
			writeValidationError(w, err.Error())
		default:
			s.logger.Error("action failed", "action", name, "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Action: name, Status: string(gather.AckAccepted)})
}
