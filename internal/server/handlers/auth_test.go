package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/tabsync/pkg/api"
)

const testSyncToken = "correct-horse-battery-staple"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

func newTestAuthHandler(t *testing.T) *AuthHandler {
	hash, err := bcrypt.GenerateFromPassword([]byte(testSyncToken), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthHandler(testLogger(), hash, testJWTConfig())
}

func doTokenRequest(t *testing.T, h *AuthHandler, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", &buf)
	rr := httptest.NewRecorder()
	h.Token(rr, req)
	return rr
}

func TestAuthHandler_Token_Success(t *testing.T) {
	h := newTestAuthHandler(t)

	rr := doTokenRequest(t, h, api.TokenRequest{
		DeviceID:  "device-1",
		SyncToken: testSyncToken,
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(15*60), resp.ExpiresIn)

	// Выданный токен валиден и несет device_id
	claims, err := ValidateAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "device-1", claims.DeviceID)
}

func TestAuthHandler_Token_Errors(t *testing.T) {
	h := newTestAuthHandler(t)

	tests := []struct {
		name     string
		req      api.TokenRequest
		wantCode int
	}{
		{
			name:     "wrong sync token",
			req:      api.TokenRequest{DeviceID: "device-1", SyncToken: "wrong"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "missing device id",
			req:      api.TokenRequest{SyncToken: testSyncToken},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing sync token",
			req:      api.TokenRequest{DeviceID: "device-1"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "device id too long",
			req:      api.TokenRequest{DeviceID: strings.Repeat("d", 129), SyncToken: testSyncToken},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doTokenRequest(t, h, tt.req)
			assert.Equal(t, tt.wantCode, rr.Code)

			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestAuthHandler_Token_MalformedBody(t *testing.T) {
	h := newTestAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.Token(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerateAccessToken_RejectsTampered(t *testing.T) {
	cfg := testJWTConfig()

	token, _, err := GenerateAccessToken(cfg, "device-1")
	require.NoError(t, err)

	// Токен с другим секретом не проходит валидацию
	otherCfg := JWTConfig{Secret: []byte("other-secret"), AccessTokenTTL: time.Minute}
	_, err = ValidateAccessToken(otherCfg, token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	cfg := JWTConfig{Secret: []byte("test-secret"), AccessTokenTTL: -time.Minute}

	token, _, err := GenerateAccessToken(cfg, "device-1")
	require.NoError(t, err)

	_, err = ValidateAccessToken(testJWTConfig(), token)
	assert.Error(t, err)
}
