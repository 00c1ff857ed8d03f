package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
)

func TestAPI_Register(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"s3cret"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user model.User
	decodeBody(t, rec, &user)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEmpty(t, user.ID)
	// The hash never leaves the server.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAPI_Register_DuplicateEmail(t *testing.T) {
	router := newTestRouter(t)
	signUp(t, router, "Ada", "ada@example.com")

	rec := doRequest(t, router, http.MethodPost, "/auth/register",
		`{"name":"Other","email":"ada@example.com","password":"different"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, "conflict", errResp.Error)
}

func TestAPI_Login_WrongPassword(t *testing.T) {
	router := newTestRouter(t)
	signUp(t, router, "Ada", "ada@example.com")

	rec := doRequest(t, router, http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_Me(t *testing.T) {
	router := newTestRouter(t)
	session := signUp(t, router, "Ada", "ada@example.com")

	rec := doRequest(t, router, http.MethodGet, "/api/me", "", session)
	require.Equal(t, http.StatusOK, rec.Code)

	var user model.User
	decodeBody(t, rec, &user)
	assert.Equal(t, "ada@example.com", user.Email)

	rec = doRequest(t, router, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_Logout_ClearsCookie(t *testing.T) {
	router := newTestRouter(t)
	session := signUp(t, router, "Ada", "ada@example.com")

	rec := doRequest(t, router, http.MethodPost, "/auth/logout", "", session)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared, "logout must rewrite the session cookie")
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}
