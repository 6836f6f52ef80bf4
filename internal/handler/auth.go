package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/security/audit"
	"github.com/karthickst/agenticosv2.0/internal/security/middleware"
	"github.com/karthickst/agenticosv2.0/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditLog *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &AuthHandler{
		authService: authService,
		audit:       auditLog,
		logger:      logger,
	}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of POST /api/auth/change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	sess, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		writeError(w, h.logger, r, err)
		return
	}

	h.logger.Info("user registered", slog.Int64("user_id", sess.User.ID))
	writeJSON(w, http.StatusCreated, sess)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	sess, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.LogLogin(r.Context(), 0, req.Email, false)
		writeError(w, h.logger, r, err)
		return
	}

	h.audit.LogLogin(r.Context(), sess.User.ID, sess.User.Email, true)
	writeJSON(w, http.StatusOK, sess)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == 0 {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeMessage(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		writeError(w, h.logger, r, err)
		return
	}

	h.logger.Info("user changed password", slog.Int64("user_id", userID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == 0 {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
