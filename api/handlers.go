package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"crosswalk/core"
	"crosswalk/dispatch"

	"github.com/gorilla/mux"
)

// respondJSON writes a JSON response with proper error handling
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
		// Response already started, can't send error to client
	}
}

// healthCheck reports whether both store pools answer
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := a.health.HealthCheck(r.Context()); err != nil {
		a.logger.Warnw("Health check failed", "error", err)
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	a.respondJSON(w, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, code)
}

// listTools returns every tool definition
func (a *API) listTools(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, map[string]interface{}{"tools": a.dispatcher.Tools()}, http.StatusOK)
}

// callTool runs one tool with the request body as its argument object.
//
// STATUS CODES:
//   - 200 with "found": false for not-found and empty results
//   - 400 for malformed or out-of-domain arguments
//   - 404 for unknown tool names
//   - 413 for bodies over api.max_body_bytes
//   - 500 for anything else
func (a *API) callTool(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	name := mux.Vars(r)["name"]

	r.Body = http.MaxBytesReader(w, r.Body, a.config.API.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err, a.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body", err, a.logger)
		return
	}

	resp, err := a.dispatcher.Call(r.Context(), name, body)
	switch {
	case err == nil:
		a.respondJSON(w, resp, http.StatusOK)
	case errors.Is(err, dispatch.ErrUnknownTool):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown tool %q", name), err, a.logger)
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), err, a.logger)
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", err, a.logger)
	}
}
