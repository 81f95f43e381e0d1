// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suoke-life/auth-service/internal/auth/device"
	"github.com/suoke-life/auth-service/internal/platform/middleware"
	requestutil "github.com/suoke-life/auth-service/internal/platform/request"
	"github.com/suoke-life/auth-service/internal/platform/respond"
	"github.com/suoke-life/auth-service/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the authentication lifecycle HTTP endpoints.
//
// # Scope
//
// Everything from account creation through login (including the device
// verification and second factor step-ups), token refresh, and password
// recovery. Session, device, two-factor management, and permission
// endpoints live in their own handlers.
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler constructs a new [Handler] with its orchestrator dependency.
func NewHandler(orchestrator *Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// Routes returns a [chi.Router] configured with the authentication routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/login/2fa", handler.verifyTwoFactor)
	router.Post("/login/verify-device", handler.verifyDevice)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login      string      `json:"login"`
	Password   string      `json:"password"`
	DeviceInfo device.Info `json:"device_info"`
}

type verifyTwoFactorRequest struct {
	TempSessionID  string      `json:"temp_session_id"`
	UserID         string      `json:"user_id"`
	Code           string      `json:"code"`
	RememberDevice bool        `json:"remember_device"`
	DeviceInfo     device.Info `json:"device_info"`
}

type verifyDeviceRequest struct {
	TempSessionID string      `json:"temp_session_id"`
	UserID        string      `json:"user_id"`
	Code          string      `json:"code"`
	DeviceInfo    device.Info `json:"device_info"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	AllDevices   bool   `json:"all_devices"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Description: Validates input, hashes the password, and persists a new
active account. Uniqueness of username, email, and phone is enforced by
the database.

Request:
  - Body: registerRequest (Username, Email, Phone, Password)

Response:
  - 201: User: Created user profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Username, email, or phone already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)
	if input.Phone != "" {
		validator.Phone(FieldPhone, input.Phone)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.orchestrator.Register(request.Context(), RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
Login authenticates a user.

POST /api/v1/auth/login

Description: Verifies credentials and routes the attempt through the risk
policy. The response either carries the full token pair or a step-up
instruction (device verification or second factor) with a temp session id.

Request:
  - Body: loginRequest (Login, Password, DeviceInfo)

Response:
  - 200: LoginResult: Tokens, or a pending verification instruction
  - 401: ErrUnauthorized: Invalid credentials
  - 403: ErrForbidden: Account disabled
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldLogin, input.Login)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.orchestrator.Login(request.Context(), LoginInput{
		Login:      input.Login,
		Password:   input.Password,
		IP:         requestutil.ClientIP(request),
		UserAgent:  request.UserAgent(),
		DeviceInfo: input.DeviceInfo,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
VerifyTwoFactor completes a login parked on the second factor.

POST /api/v1/auth/login/2fa

Description: Accepts a TOTP code or a recovery code together with the temp
session id returned by Login.

Request:
  - Body: verifyTwoFactorRequest (TempSessionID, UserID, Code, RememberDevice, DeviceInfo)

Response:
  - 200: LoginResult: Full token pair
  - 401: ErrUnauthorized: Invalid code or temp session
*/
func (handler *Handler) verifyTwoFactor(writer http.ResponseWriter, request *http.Request) {
	var input verifyTwoFactorRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldTempSessionID, input.TempSessionID).
		Required("user_id", input.UserID).
		Required(FieldCode, input.Code).
		SecondFactorCode(FieldCode, input.Code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.orchestrator.VerifyTwoFactorAndLogin(
		request.Context(),
		input.UserID, input.TempSessionID, input.Code, input.RememberDevice,
		input.DeviceInfo, requestutil.ClientIP(request), request.UserAgent(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
VerifyDevice completes a login parked on device verification.

POST /api/v1/auth/login/verify-device

Description: Accepts the SMS code delivered to the account's phone. The
verified device is trusted. Accounts with a second factor continue into
the 2FA step instead of completing.

Request:
  - Body: verifyDeviceRequest (TempSessionID, UserID, Code, DeviceInfo)

Response:
  - 200: LoginResult: Token pair or a pending_2fa instruction
  - 401: ErrUnauthorized: Invalid code or temp session
  - 429: ErrRateLimited: Attempt budget exhausted
*/
func (handler *Handler) verifyDevice(writer http.ResponseWriter, request *http.Request) {
	var input verifyDeviceRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldTempSessionID, input.TempSessionID).
		Required("user_id", input.UserID).
		Required(FieldCode, input.Code)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.orchestrator.VerifyDeviceAndLogin(
		request.Context(),
		input.UserID, input.TempSessionID, input.Code,
		input.DeviceInfo, requestutil.ClientIP(request), request.UserAgent(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Refresh rotates a token pair.

POST /api/v1/auth/refresh

Description: Exchanges a valid refresh token for a fresh pair. The old
refresh token is revoked first, so replaying it fails.

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: LoginResult: New token pair
  - 401: ErrUnauthorized: Invalid or revoked refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "is required"))
		return
	}

	result, err := handler.orchestrator.Refresh(
		request.Context(),
		input.RefreshToken,
		requestutil.ClientIP(request),
		request.UserAgent(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Logout terminates the current session, or all of them.

POST /api/v1/auth/logout

Description: Revokes the presented access token (and refresh token when
supplied) along with the bound session. With all_devices every token and
session of the user is revoked.

Request:
  - Body: logoutRequest (RefreshToken, AllDevices) — optional

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Body is optional; a bare POST logs out the current session
	var input logoutRequest
	_ = requestutil.DecodeJSON(request, &input)

	if err := handler.orchestrator.Logout(request.Context(), LogoutInput{
		UserID:       userID,
		AccessToken:  requestutil.BearerToken(request),
		RefreshToken: input.RefreshToken,
		AllDevices:   input.AllDevices,
	}); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/v1/auth/forgot-password

Description: Sends a reset link when the email maps to an account. The
response never reveals whether it does.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Success: Generic security message
  - 400: ErrInvalidJSON: Invalid email format
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.orchestrator.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If this email is registered, a reset link has been sent.",
	})
}

/*
ResetPassword completes the password recovery flow.

POST /api/v1/auth/reset-password

Description: Validates the single-use reset token and replaces the
password. Every outstanding token and session of the account is revoked.

Request:
  - Body: resetPasswordRequest (Token, Password)

Response:
  - 200: Success: Password updated
  - 401: ErrUnauthorized: Invalid or consumed token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.orchestrator.ConfirmPasswordReset(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password updated successfully",
	})
}

/*
ChangePassword updates the authenticated user's password.

POST /api/v1/auth/change-password

Description: Verifies the current password before applying the new one.
All other sessions of the user are revoked; the calling one survives.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Success: Password changed
  - 401: ErrUnauthorized: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.orchestrator.ChangePassword(
		request.Context(),
		claims.UserID(),
		input.CurrentPassword,
		input.NewPassword,
		claims.SessionID,
	); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password changed successfully",
	})
}
