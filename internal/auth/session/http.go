// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package session

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/middleware"
	requestutil "github.com/suoke-life/auth-service/internal/platform/request"
	"github.com/suoke-life/auth-service/internal/platform/respond"
	"github.com/suoke-life/auth-service/internal/platform/validate"
	"github.com/suoke-life/auth-service/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the session management HTTP endpoints. All routes
// operate on the authenticated caller's own sessions.
type Handler struct {
	manager *Manager
}

// NewHandler constructs a new [Handler].
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Routes returns a [chi.Router] with the session management routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Put("/current", handler.setCurrent)
	router.Delete("/{sessionID}", handler.revoke)
	router.Delete("/", handler.revokeOthers)

	return router
}

// # Request Payloads

type setCurrentRequest struct {
	SessionID string `json:"session_id"`
}

/*
List returns the caller's sessions.

GET /api/v1/sessions?active_only=true&page=1&limit=20

Response:
  - 200: []Session with pagination metadata
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	activeOnly, _ := strconv.ParseBool(request.URL.Query().Get("active_only"))
	params := pagination.FromRequest(request)

	sessions, total, err := handler.manager.List(request.Context(), userID, activeOnly, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, sessions, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
SetCurrent marks one session as the caller's current one.

PUT /api/v1/sessions/current

Description: Exactly one session per user carries the current flag; the
previous holder loses it atomically.

Request:
  - Body: setCurrentRequest (SessionID)

Response:
  - 204: No Content
  - 404: ErrNotFound: Session does not exist or belongs to someone else
*/
func (handler *Handler) setCurrent(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setCurrentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("session_id", input.SessionID).UUID("session_id", input.SessionID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.manager.SetCurrent(request.Context(), userID, input.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Revoke terminates one of the caller's sessions.

DELETE /api/v1/sessions/{sessionID}

Response:
  - 204: No Content
  - 404: ErrNotFound: Session does not exist or belongs to someone else
*/
func (handler *Handler) revoke(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID := requestutil.Param(request, "sessionID")

	// Ownership check before the state transition
	found, err := handler.manager.Get(request.Context(), sessionID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if found.UserID != userID {
		respond.Error(writer, request, apperr.NotFound("Session"))
		return
	}

	if err := handler.manager.Revoke(request.Context(), sessionID, "user_revoked"); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
RevokeOthers terminates every session of the caller except the one bound
to the presented access token.

DELETE /api/v1/sessions

Response:
  - 200: {revoked}
*/
func (handler *Handler) revokeOthers(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	revoked, err := handler.manager.RevokeAll(request.Context(), claims.UserID(), claims.SessionID, "user_revoked_others")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{
		"revoked": revoked,
	})
}
