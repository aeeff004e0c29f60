package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// maxBodyBytes bounds the request body; the service enforces the value limit.
const maxBodyBytes = 4 * simpleauthority.MaxValueBytes

// AuthorityHandler exposes authority renames over HTTP
type AuthorityHandler struct {
	service simpleauthority.Service
	auth    *jwtauth.JWTAuth
}

// NewAuthorityHandler creates a handler. When auth is nil requests carry
// no caller identity and renames fail the administrator check.
func NewAuthorityHandler(service simpleauthority.Service, auth *jwtauth.JWTAuth) *AuthorityHandler {
	return &AuthorityHandler{service: service, auth: auth}
}

// Routes returns the authority routes
func (h *AuthorityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	if h.auth != nil {
		r.Use(jwtauth.Verifier(h.auth))
	}
	r.Put("/{authorityID}/value", h.UpdateAuthorityValue)
	return r
}

// RenameResponse is returned after a successful rename
type RenameResponse struct {
	AuthorityID string `json:"authority_id"`
}

// ErrorResponse describes a failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UpdateAuthorityValue renames the authority in the path to the plain-text
// request body.
func (h *AuthorityHandler) UpdateAuthorityValue(w http.ResponseWriter, r *http.Request) {
	authorityID := chi.URLParam(r, "authorityID")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		slog.Error("Failed to read request body", "authority_id", authorityID, "error", err)
		writeError(w, r, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}

	caller := CallerFromRequest(r)
	newID, err := h.service.Rename(r.Context(), simpleauthority.RenameRequest{
		AuthorityID: authorityID,
		Value:       string(body),
	}, caller)
	if err != nil {
		status, code := StatusForError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Failed to update authority value", "authority_id", authorityID, "error", err)
		} else {
			slog.Warn("Rejected authority value update", "authority_id", authorityID, "reason", code)
		}
		writeError(w, r, status, code, err.Error())
		return
	}

	slog.Info("Authority value updated", "authority_id", authorityID, "new_authority_id", newID)
	render.JSON(w, r, RenameResponse{AuthorityID: newID})
}

// StatusForError maps a rename error class to an HTTP status and code
func StatusForError(err error) (int, string) {
	switch simpleauthority.ClassOf(err) {
	case simpleauthority.ErrDisabled:
		return http.StatusBadRequest, "disabled"
	case simpleauthority.ErrValidationFailure:
		return http.StatusBadRequest, "validation_failure"
	case simpleauthority.ErrUnsupportedKind:
		return http.StatusBadRequest, "unsupported_kind"
	case simpleauthority.ErrUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case simpleauthority.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case simpleauthority.ErrIndexFailure:
		return http.StatusInternalServerError, "index_failure"
	default:
		return http.StatusInternalServerError, "storage_failure"
	}
}

// CallerFromRequest builds the caller from verified JWT claims. "sub" is
// the subject; roles come from a "roles" list or a single "role" claim.
// Requests without a valid token yield the zero Caller.
func CallerFromRequest(r *http.Request) simpleauthority.Caller {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return simpleauthority.Caller{}
	}

	caller := simpleauthority.Caller{}
	if sub, ok := claims["sub"].(string); ok {
		caller.Subject = sub
	}
	switch roles := claims["roles"].(type) {
	case []interface{}:
		for _, role := range roles {
			if s, ok := role.(string); ok {
				caller.Roles = append(caller.Roles, s)
			}
		}
	case []string:
		caller.Roles = append(caller.Roles, roles...)
	case string:
		caller.Roles = append(caller.Roles, strings.Split(roles, ",")...)
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		caller.Roles = append(caller.Roles, role)
	}
	return caller
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: code, Message: message})
}
