// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package twofactor

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suoke-life/auth-service/internal/platform/middleware"
	requestutil "github.com/suoke-life/auth-service/internal/platform/request"
	"github.com/suoke-life/auth-service/internal/platform/respond"
	"github.com/suoke-life/auth-service/internal/platform/validate"
)

// # Definitions & Constructors

// PasswordVerifier re-checks the caller's password before a destructive
// security change.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID, password string) error
}

// Handler implements the two-factor management HTTP endpoints. All routes
// require authentication; these manage the caller's own enrollment.
type Handler struct {
	service   *Service
	passwords PasswordVerifier
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, passwords PasswordVerifier) *Handler {
	return &Handler{service: service, passwords: passwords}
}

// Routes returns a [chi.Router] with the two-factor management routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/status", handler.status)
	router.Post("/setup", handler.setup)
	router.Post("/activate", handler.activate)
	router.Post("/disable", handler.disable)
	router.Get("/recovery-codes", handler.remainingRecoveryCodes)
	router.Post("/recovery-codes", handler.regenerateRecoveryCodes)

	return router
}

// # Request Payloads

type setupRequest struct {
	AccountName string `json:"account_name"`
}

type activateRequest struct {
	SetupID string `json:"setup_id"`
	Code    string `json:"code"`
}

type disableRequest struct {
	Password string `json:"password"`
}

/*
Status reports whether the caller has a second factor enabled.

GET /api/v1/2fa/status

Response:
  - 200: {enabled, method}
*/
func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	enabled, err := handler.service.Enabled(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	method := ""
	if enabled {
		method = MethodTOTP
	}
	respond.OK(writer, map[string]any{
		"enabled": enabled,
		"method":  method,
	})
}

/*
Setup begins two-factor enrollment.

POST /api/v1/2fa/setup

Description: Generates a fresh TOTP secret and returns it with the
provisioning URI and QR code. Nothing changes on the account until the
setup is activated with a valid code.

Request:
  - Body: setupRequest (AccountName) — optional label for the authenticator

Response:
  - 200: ProvisionResult: Secret, otpauth URI, QR code, setup id
  - 409: ErrConflict: Already enabled
*/
func (handler *Handler) setup(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setupRequest
	_ = requestutil.DecodeJSON(request, &input)

	accountName := input.AccountName
	if accountName == "" {
		accountName = userID
	}

	result, err := handler.service.Provision(request.Context(), userID, accountName)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Activate confirms two-factor enrollment.

POST /api/v1/2fa/activate

Description: Verifies a live TOTP code against the pending setup. On
success the second factor is enabled and the single batch of recovery
codes is returned — they are never shown again.

Request:
  - Body: activateRequest (SetupID, Code)

Response:
  - 200: {recovery_codes}
  - 401: ErrUnauthorized: Invalid verification code
  - 404: ErrNotFound: Setup expired or already consumed
*/
func (handler *Handler) activate(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input activateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("setup_id", input.SetupID).
		Required("code", input.Code).
		TOTPCode("code", input.Code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	recoveryCodes, err := handler.service.Activate(request.Context(), userID, input.SetupID, input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"recovery_codes": recoveryCodes,
	})
}

/*
Disable turns the second factor off.

POST /api/v1/2fa/disable

Description: Requires the account password as proof of identity before
disabling. All recovery codes are destroyed.

Request:
  - Body: disableRequest (Password)

Response:
  - 200: Success
  - 401: ErrUnauthorized: Invalid password
  - 409: ErrConflict: Not enabled
*/
func (handler *Handler) disable(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input disableRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Password == "" {
		respond.Error(writer, request, validate.RequiredError("password", "is required"))
		return
	}

	if err := handler.passwords.VerifyPassword(request.Context(), userID, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Disable(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		"message": "Two-factor authentication disabled",
	})
}

/*
RemainingRecoveryCodes reports how many recovery codes are left.

GET /api/v1/2fa/recovery-codes

Response:
  - 200: {remaining}
*/
func (handler *Handler) remainingRecoveryCodes(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	remaining, err := handler.service.RemainingRecoveryCodes(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]int{
		"remaining": remaining,
	})
}

/*
RegenerateRecoveryCodes replaces the recovery code batch.

POST /api/v1/2fa/recovery-codes

Description: Invalidates every outstanding recovery code and returns a
fresh batch.

Response:
  - 200: {recovery_codes}
  - 409: ErrConflict: Not enabled
*/
func (handler *Handler) regenerateRecoveryCodes(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	recoveryCodes, err := handler.service.RegenerateRecoveryCodes(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"recovery_codes": recoveryCodes,
	})
}
