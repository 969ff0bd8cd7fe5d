package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/tabsync/internal/validation"
	"github.com/iudanet/tabsync/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации.
// Схема с общим sync-токеном: все устройства одного пользователя
// предъявляют один секрет и получают JWT со своим device_id.
type AuthHandler struct {
	logger        *slog.Logger
	syncTokenHash []byte // bcrypt hash общего sync-токена
	jwtConfig     JWTConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, syncTokenHash []byte, jwtConfig JWTConfig) *AuthHandler {
	return &AuthHandler{
		logger:        logger,
		syncTokenHash: syncTokenHash,
		jwtConfig:     jwtConfig,
	}
}

// Token обрабатывает POST /api/v1/auth/token
// Обмен общего sync-токена на access token устройства
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode token request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.DeviceID == "" {
		h.sendError(w, "device_id is required", http.StatusBadRequest)
		return
	}
	if len(req.DeviceID) > validation.MaxDeviceIDLen {
		h.sendError(w, "device_id is too long", http.StatusBadRequest)
		return
	}
	if req.SyncToken == "" {
		h.sendError(w, "sync_token is required", http.StatusBadRequest)
		return
	}

	// Сравнение через bcrypt: хеш не зависит от длины секрета,
	// тайминг не раскрывает совпавший префикс
	if err := bcrypt.CompareHashAndPassword(h.syncTokenHash, []byte(req.SyncToken)); err != nil {
		h.logger.WarnContext(ctx, "sync token rejected", slog.String("device_id", req.DeviceID))
		h.sendError(w, "invalid sync token", http.StatusUnauthorized)
		return
	}

	accessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.DeviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "device authenticated",
		slog.String("device_id", req.DeviceID),
		slog.Int64("expires_in", expiresIn))

	resp := api.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}
