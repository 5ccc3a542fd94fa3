package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/ismail-169/sentinel-finance-sub000/internal/errors"
	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
)

type contextKey string

const WalletContextKey contextKey = "wallet"

// GetWallet returns the authenticated wallet address, or "" when the
// request is unauthenticated.
func GetWallet(ctx context.Context) string {
	if wallet, ok := ctx.Value(WalletContextKey).(string); ok {
		return wallet
	}
	return ""
}

// AuthMiddleware validates bearer JWTs whose subject is the caller's
// wallet address.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		wallet, err := m.parseSubject(token)
		if err != nil {
			log.Warn().Err(err).Msg("auth middleware: invalid token attempt")
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), WalletContextKey, wallet)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) parseSubject(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.InvalidToken("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return "", apperrors.New(apperrors.ErrCodeTokenExpired, "Token expired")
		}
		return "", apperrors.InvalidToken("Invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || !model.ValidAddress(claims.Subject) {
		return "", apperrors.InvalidToken("Invalid token subject")
	}

	return model.NormalizeAddress(claims.Subject), nil
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// SSE clients cannot set headers
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	return ""
}
