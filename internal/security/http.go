// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package security

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/suoke-life/auth-service/internal/platform/middleware"
	requestutil "github.com/suoke-life/auth-service/internal/platform/request"
	"github.com/suoke-life/auth-service/internal/platform/respond"
)

const defaultEventLimit = 50

// Handler exposes the security event feed.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the security event routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/events", handler.listEvents)

	return router
}

/*
ListEvents returns the caller's recent security events, newest first.

GET /api/v1/security/events?limit=50

Response:
  - 200: []Event
*/
func (handler *Handler) listEvents(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	limit, _ := strconv.Atoi(request.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = defaultEventLimit
	}

	events, err := handler.service.ListUserEvents(request.Context(), userID, limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, events)
}
