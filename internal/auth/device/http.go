// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package device

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suoke-life/auth-service/internal/platform/middleware"
	requestutil "github.com/suoke-life/auth-service/internal/platform/request"
	"github.com/suoke-life/auth-service/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements the device management HTTP endpoints. All routes
// operate on the authenticated caller's own devices.
type Handler struct {
	registry *Registry
}

// NewHandler constructs a new [Handler].
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Routes returns a [chi.Router] with the device management routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.list)
	router.Post("/{deviceID}/trust", handler.trust)
	router.Delete("/{deviceID}/trust", handler.untrust)
	router.Delete("/{deviceID}", handler.remove)

	return router
}

/*
List returns the caller's registered devices.

GET /api/v1/devices

Response:
  - 200: []Device
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	devices, err := handler.registry.List(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, devices)
}

/*
Trust marks a device as trusted.

POST /api/v1/devices/{deviceID}/trust

Description: Logins from a trusted device skip verification and receive
long-lived sessions.

Response:
  - 204: No Content
  - 404: ErrNotFound: Device does not exist or belongs to someone else
*/
func (handler *Handler) trust(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.registry.Trust(request.Context(), userID, requestutil.Param(request, "deviceID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Untrust removes the trusted flag from a device.

DELETE /api/v1/devices/{deviceID}/trust

Response:
  - 204: No Content
  - 404: ErrNotFound: Device does not exist or belongs to someone else
*/
func (handler *Handler) untrust(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.registry.Untrust(request.Context(), userID, requestutil.Param(request, "deviceID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Remove deletes a registered device.

DELETE /api/v1/devices/{deviceID}

Description: The next login from this device will go through verification
again.

Response:
  - 204: No Content
  - 404: ErrNotFound: Device does not exist or belongs to someone else
*/
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.registry.Remove(request.Context(), userID, requestutil.Param(request, "deviceID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
