package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ismail-169/sentinel-finance-sub000/internal/config"
)

const (
	testAPISecret = "correct-horse-battery-staple"
	testJWTSecret = "unit-test-jwt-secret"
	testWallet    = "0x1111111111111111111111111111111111111111"
)

func newTestAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPISecret), bcrypt.MinCost)
	require.NoError(t, err)

	return NewAuthHandler(&config.Config{
		APISecretHash:    string(hash),
		JWTSecret:        testJWTSecret,
		JWTExpireMinutes: 60,
	})
}

func requestToken(h *AuthHandler, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.Token(rec, req)
	return rec
}

func TestToken_IssuesWalletScopedJWT(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := requestToken(h, testAPISecret, `{"walletAddress":"`+testWallet+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expiresAt"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ExpiresAt)

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(resp.Token, &claims, func(*jwt.Token) (any, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, testWallet, claims.Subject)
}

func TestToken_NormalizesWalletSubject(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := requestToken(h, testAPISecret, `{"walletAddress":"0xABCDEF1234567890ABCDEF1234567890ABCDEF12"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(resp.Token, &claims, func(*jwt.Token) (any, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef1234567890abcdef1234567890abcdef12", claims.Subject)
}

func TestToken_RejectsWrongAPIKey(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := requestToken(h, "wrong-secret", `{"walletAddress":"`+testWallet+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestToken_RejectsMissingAPIKey(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := requestToken(h, "", `{"walletAddress":"`+testWallet+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestToken_RejectsInvalidWallet(t *testing.T) {
	h := newTestAuthHandler(t)

	rec := requestToken(h, testAPISecret, `{"walletAddress":"not-an-address"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToken_RejectsWhenNotConfigured(t *testing.T) {
	h := NewAuthHandler(&config.Config{JWTSecret: testJWTSecret})

	rec := requestToken(h, testAPISecret, `{"walletAddress":"`+testWallet+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
