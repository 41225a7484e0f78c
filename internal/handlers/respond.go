// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers for the flowcms API.
// Handlers are grouped by concern (content, scheduler admin, auth) and
// receive their dependencies through the handler struct.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"flowcms/internal/workflow"
)

// errorBody is the JSON envelope for every failed request.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps a workflow error to its HTTP status and error kind.
// Anything not matching a workflow sentinel is a persistence failure and
// surfaces as a plain 500 without internal detail.
func writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal error"
	}

	writeJSON(w, status, map[string]errorBody{
		"error": {Kind: kind, Message: msg},
	})
}

// classify resolves the error kind and HTTP status for a workflow error.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, workflow.ErrPermissionDenied):
		return "permission_denied", http.StatusForbidden
	case errors.Is(err, workflow.ErrInvalidTransition):
		return "invalid_transition", http.StatusConflict
	case errors.Is(err, workflow.ErrValidation):
		return "validation_error", http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrConflict):
		return "conflict", http.StatusConflict
	default:
		return "persistence_error", http.StatusInternalServerError
	}
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}
