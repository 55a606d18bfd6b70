package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/auth"
	"account-service/internal/events"
	"account-service/internal/repository/memory"
	"account-service/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte("secret"), TTL: time.Hour})
	require.NoError(t, err)
	accounts := service.NewAccountService(memory.NewUserRepository(), auth.NewBcryptHasher(bcrypt.MinCost), tokens, events.Nop{})

	logger, _ := test.NewNullLogger()
	router := gin.New()
	NewHandler(accounts, logger).RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func signupAndLogin(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := do(router, http.MethodPost, "/api/users",
		`{"username":"bob","email":"b@x.com","full_name":"Bob","password":"password1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(router, http.MethodPost, "/api/token", `{"username":"bob","password":"password1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[TokenResponse](t, w).AccessToken
}

func TestCreateUser(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		body     string
		wantCode int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"username":"bob","password":"password1"}`, http.StatusBadRequest},
		{`{"username":"bob","email":"b@x.com","password":"short"}`, http.StatusBadRequest},
		{`{"username":"bob","email":"b@x.com","password":"password1"}`, http.StatusCreated},
		{`{"username":"bob","email":"c@x.com","password":"password1"}`, http.StatusConflict},
		{`{"username":"bobby","email":"b@x.com","password":"password1"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		w := do(router, http.MethodPost, "/api/users", tt.body, "")
		assert.Equal(t, tt.wantCode, w.Code, tt.body)
		if tt.wantCode == http.StatusCreated {
			resp := decode[map[string]any](t, w)
			assert.NotEmpty(t, resp["id"])
			assert.Equal(t, "bob", resp["username"])
			assert.Equal(t, "b@x.com", resp["email"])
			assert.NotContains(t, resp, "hashed_password")
			assert.NotContains(t, w.Body.String(), "password1")
		}
	}
}

func TestLogin(t *testing.T) {
	router := newTestRouter(t)
	token := signupAndLogin(t, router)
	assert.NotEmpty(t, token)

	t.Run("form encoded", func(t *testing.T) {
		form := url.Values{"username": {"bob"}, "password": {"password1"}}
		req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[TokenResponse](t, w)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.NotEmpty(t, resp.ExpiresAt)
	})

	t.Run("failures look the same", func(t *testing.T) {
		unknown := do(router, http.MethodPost, "/api/token", `{"username":"nosuchuser","password":"anything"}`, "")
		wrong := do(router, http.MethodPost, "/api/token", `{"username":"bob","password":"wrongpass"}`, "")

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
		assert.Equal(t, "Bearer", wrong.Header().Get("WWW-Authenticate"))
	})

	t.Run("missing fields", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/token", `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestReadMe(t *testing.T) {
	router := newTestRouter(t)
	token := signupAndLogin(t, router)

	w := do(router, http.MethodGet, "/api/users/me", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, "bob", resp["username"])
	assert.Equal(t, "b@x.com", resp["email"])
	assert.Equal(t, "Bob", resp["full_name"])
	assert.Equal(t, false, resp["disabled"])
	assert.NotEmpty(t, resp["id"])
	assert.Len(t, resp, 5)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	}
}

func TestUpdateMe(t *testing.T) {
	router := newTestRouter(t)
	token := signupAndLogin(t, router)

	w := do(router, http.MethodPost, "/api/users", `{"username":"alice","email":"a@x.com","password":"password1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(router, http.MethodPut, "/api/users/me", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/api/users/me", `{"email":"a@x.com"}`, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(router, http.MethodPut, "/api/users/me", `{"password":"weak"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPut, "/api/users/me", `{"full_name":"Robert","email":"r@x.com"}`, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[UpdateUserResponse](t, w)
	assert.Equal(t, []string{"email", "full_name"}, resp.UpdatedFields)

	w = do(router, http.MethodGet, "/api/users/me", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[UserResponse](t, w)
	assert.Equal(t, "r@x.com", me.Email)
	assert.Equal(t, "Robert", me.FullName)

	w = do(router, http.MethodPut, "/api/users/me", `{"disabled":true}`, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/api/users/me", "", token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPut, "/api/users/me", `{"full_name":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	w := do(router, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.want, got, tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
	}
}
