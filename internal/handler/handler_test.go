package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/streamhub/internal/auth"
	sqliteRepo "github.com/sakif/streamhub/internal/repository/sqlite"
	"github.com/sakif/streamhub/internal/service"
)

// newTestRouter wires the full API stack — router, middleware, handlers,
// services, in-memory database — exactly as the server does, minus the
// HTML pages and static files. Tests drive it through httptest.
func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	require.NoError(t, err)

	streamService := service.NewStreamService(sqliteRepo.NewStreamRepo(db), logger)
	authService := service.NewAuthService(
		sqliteRepo.NewUserRepo(db),
		tokens,
		auth.NewPasswordServiceForTest(bcrypt.MinCost),
		logger,
	)

	streamHandler := NewStreamHandler(streamService, logger)
	authHandler := NewAuthHandler(authService, nil, logger)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})
	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/streams", streamHandler.HandleList)
			r.Get("/streams/{idOrSlug}", streamHandler.HandleGet)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Post("/streams", streamHandler.HandleCreate)
			r.Patch("/streams/{idOrSlug}", streamHandler.HandleUpdate)
			r.Delete("/streams/{idOrSlug}", streamHandler.HandleDelete)
		})
	})
	return router
}

// doRequest performs one request against the router. A non-nil session
// cookie authenticates the call.
func doRequest(t *testing.T, router http.Handler, method, path, body string, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// signUp registers an account and signs it in, returning the session cookie.
func signUp(t *testing.T, router http.Handler, name, email string) *http.Cookie {
	t.Helper()

	rec := doRequest(t, router, http.MethodPost, "/auth/register",
		`{"name":"`+name+`","email":"`+email+`","password":"s3cret"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, "register: %s", rec.Body.String())

	rec = doRequest(t, router, http.MethodPost, "/auth/login",
		`{"email":"`+email+`","password":"s3cret"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, "login: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}
