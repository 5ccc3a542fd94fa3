package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/ismail-169/sentinel-finance-sub000/internal/config"
	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

// AuthHandler exchanges the shared API secret for a wallet-scoped JWT.
// The secret itself is never stored; only its bcrypt hash is configured.
type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/token", h.Token)
	return r
}

// POST /auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		writeError(w, apperrors.Unauthorized("Missing API key"))
		return
	}
	if h.cfg.APISecretHash == "" {
		writeError(w, apperrors.Unauthorized("API authentication is not configured"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.APISecretHash), []byte(apiKey)); err != nil {
		log.Warn().Msg("token request with invalid api key")
		writeError(w, apperrors.Unauthorized("Invalid API key"))
		return
	}

	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "invalid JSON"))
		return
	}
	if !model.ValidAddress(req.WalletAddress) {
		writeError(w, apperrors.InvalidInput("walletAddress", "not a hex address"))
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.cfg.JWTExpiry())
	claims := jwt.RegisteredClaims{
		Subject:   model.NormalizeAddress(req.WalletAddress),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		log.Error().Err(err).Msg("failed to sign token")
		writeError(w, apperrors.Internal("Failed to issue token"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}
