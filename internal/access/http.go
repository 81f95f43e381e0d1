// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suoke-life/auth-service/internal/platform/middleware"
	requestutil "github.com/suoke-life/auth-service/internal/platform/request"
	"github.com/suoke-life/auth-service/internal/platform/respond"
	"github.com/suoke-life/auth-service/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the permission HTTP endpoints.
//
// # Scope
//
// Self-service checks for the authenticated caller, plus admin-only
// management of direct per-user grants.
type Handler struct {
	resolver *Resolver
}

// NewHandler constructs a new [Handler].
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Routes returns a [chi.Router] with the permission routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Post("/check", handler.check)
	router.Post("/batch-check", handler.batchCheck)
	router.Get("/me", handler.myPermissions)

	// Admin-only management of direct grants
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(RoleAdmin))
		r.Get("/users/{userID}", handler.userPermissions)
		r.Post("/users/{userID}", handler.assign)
		r.Delete("/users/{userID}", handler.revoke)
	})

	return router
}

// # Request Payloads

type checkRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Action       string `json:"action"`
}

type batchCheckRequest struct {
	Checks []checkRequest `json:"checks"`
}

type permissionListRequest struct {
	Permissions []string `json:"permissions"`
}

/*
Check evaluates a single access decision for the caller.

POST /api/v1/access/check

Request:
  - Body: checkRequest (ResourceType, ResourceID, Action)

Response:
  - 200: {allowed}
*/
func (handler *Handler) check(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input checkRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("resource_type", input.ResourceType).
		Required("action", input.Action)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	allowed, err := handler.resolver.CanAccess(request.Context(), userID, input.ResourceType, input.ResourceID, input.Action)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{
		"allowed": allowed,
	})
}

/*
BatchCheck evaluates several access decisions in one round trip.

POST /api/v1/access/batch-check

Description: Decisions are evaluated concurrently; a failed entry counts
as denied rather than failing the batch.

Request:
  - Body: batchCheckRequest (Checks)

Response:
  - 200: {results: map of "type:id:action" to bool}
*/
func (handler *Handler) batchCheck(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input batchCheckRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if len(input.Checks) == 0 {
		respond.Error(writer, request, validate.RequiredError("checks", "must not be empty"))
		return
	}

	checks := make([]Check, 0, len(input.Checks))
	for _, entry := range input.Checks {
		checks = append(checks, Check{
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			Action:       entry.Action,
		})
	}

	respond.OK(writer, map[string]any{
		"results": handler.resolver.BatchCheck(request.Context(), userID, checks),
	})
}

/*
MyPermissions returns the caller's effective permission set.

GET /api/v1/access/me

Response:
  - 200: {permissions}
*/
func (handler *Handler) myPermissions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.respondPermissions(writer, request, userID)
}

/*
UserPermissions returns another user's effective permission set.

GET /api/v1/access/users/{userID}

Response:
  - 200: {permissions}
  - 403: ErrForbidden: Caller is not an admin
*/
func (handler *Handler) userPermissions(writer http.ResponseWriter, request *http.Request) {
	handler.respondPermissions(writer, request, requestutil.Param(request, "userID"))
}

func (handler *Handler) respondPermissions(writer http.ResponseWriter, request *http.Request, userID string) {
	permissions, err := handler.resolver.EffectivePermissions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"user_id":     userID,
		"permissions": permissions,
	})
}

/*
Assign grants direct permissions to a user.

POST /api/v1/access/users/{userID}

Description: Direct grants sit above role and group grants. Every cache
tier for the user is invalidated.

Request:
  - Body: permissionListRequest (Permissions)

Response:
  - 204: No Content
  - 400: ErrValidation: Unknown permission name
  - 403: ErrForbidden: Caller is not an admin
*/
func (handler *Handler) assign(writer http.ResponseWriter, request *http.Request) {
	handler.setDirect(writer, request, true)
}

/*
Revoke removes permissions from a user.

DELETE /api/v1/access/users/{userID}

Description: A revocation is an explicit deny: it overrides grants the
user would otherwise inherit from roles or groups.

Request:
  - Body: permissionListRequest (Permissions)

Response:
  - 204: No Content
  - 400: ErrValidation: Unknown permission name
  - 403: ErrForbidden: Caller is not an admin
*/
func (handler *Handler) revoke(writer http.ResponseWriter, request *http.Request) {
	handler.setDirect(writer, request, false)
}

func (handler *Handler) setDirect(writer http.ResponseWriter, request *http.Request, granted bool) {
	targetUserID := requestutil.Param(request, "userID")

	var input permissionListRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	var err error
	if granted {
		err = handler.resolver.AssignPermissions(request.Context(), targetUserID, input.Permissions)
	} else {
		err = handler.resolver.RevokePermissions(request.Context(), targetUserID, input.Permissions)
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
