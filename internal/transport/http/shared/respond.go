// Package shared centralizes response writing and domain-error
// translation for the HTTP layer.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"tenantguard/internal/authz"
	dErrors "tenantguard/pkg/domain-errors"
)

type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates an error into an HTTP response.
//
// Authorization failures deliberately collapse into one opaque denial:
// the response never reveals whether resolution found no context or found
// the wrong tenant, so a probing caller learns nothing about either.
func WriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, authz.ErrMissingContext) || authz.IsTenantMismatch(err) {
		WriteJSON(w, http.StatusForbidden, errorBody{Error: "authorization denied"})
		return
	}
	if authz.IsAuditWriteFailed(err) {
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: "bad request"})
	case dErrors.CodeUnauthorized:
		WriteJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case dErrors.CodeForbidden:
		WriteJSON(w, http.StatusForbidden, errorBody{Error: "authorization denied"})
	case dErrors.CodeNotFound:
		WriteJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case dErrors.CodeConflict:
		WriteJSON(w, http.StatusConflict, errorBody{Error: "conflict"})
	case dErrors.CodeTimeout:
		WriteJSON(w, http.StatusGatewayTimeout, errorBody{Error: "timeout"})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
