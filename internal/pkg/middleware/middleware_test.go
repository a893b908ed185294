package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	"s8garante/internal/guard"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"
)

type stubValidator struct {
	session *authstate.Session
	err     error
	got     string
}

func (s *stubValidator) ValidateSession(_ context.Context, token string) (*authstate.Session, error) {
	s.got = token
	return s.session, s.err
}

type stubResolver struct{ state authstate.State }

func (s stubResolver) Resolve(_ context.Context, _ *authstate.Session) authstate.State {
	return s.state
}

func TestAuthenticate_AttachesSession(t *testing.T) {
	sess := &authstate.Session{ID: "s1", UserID: "u1"}
	v := &stubValidator{session: sess}

	var seen *authstate.Session
	h := middleware.Authenticate(v, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.SessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/perfil", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc.def", v.got)
	assert.Same(t, sess, seen)
}

func TestAuthenticate_InvalidTokenContinuesAnonymous(t *testing.T) {
	v := &stubValidator{err: errors.New("token inválido")}

	called := false
	h := middleware.Authenticate(v, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Nil(t, middleware.SessionFromContext(r.Context()))
		assert.Equal(t, authstate.PhaseAnonymous, middleware.StateFromContext(r.Context()).Phase)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic xyz")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
	assert.Empty(t, v.got)

	req.Header.Set("Authorization", "Bearer ruim")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "ruim", v.got)
}

func TestGuard(t *testing.T) {
	sess := &authstate.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	agency := authstate.Authenticated(sess, &domain.Profile{ID: "u1", Type: domain.UserTypeImobiliaria, PasswordChanged: true})
	agencyNew := authstate.Authenticated(sess, &domain.Profile{ID: "u1", Type: domain.UserTypeImobiliaria})

	tests := []struct {
		name     string
		state    authstate.State
		req      guard.Requirement
		status   int
		category string
		redirect string
	}{
		{"liberado", agency, guard.RequireImobiliaria, http.StatusOK, "", ""},
		{"anônimo", authstate.Anonymous(), guard.RequireAdmin, http.StatusUnauthorized, "UNAUTHORIZED", "/login"},
		{"papel errado", agency, guard.RequireAdmin, http.StatusUnauthorized, "UNAUTHORIZED", "/login"},
		{"senha pendente", agencyNew, guard.RequireImobiliaria, http.StatusForbidden, "PASSWORD_CHANGE_REQUIRED", "/alterar-senha"},
		{"senha já alterada", agency, guard.RequirePassword, http.StatusConflict, "REDIRECT", "/imobiliaria"},
		{"carregando", authstate.Loading(sess), guard.RequireAnyRole, http.StatusServiceUnavailable, "SESSION_LOADING", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got authstate.State
			h := middleware.Guard(stubResolver{state: tt.state}, tt.req)(func(w http.ResponseWriter, r *http.Request) {
				got = middleware.StateFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.state.Phase, got.Phase)
				return
			}
			var body domain.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.category, body.Category)
			assert.Equal(t, tt.redirect, body.Redirect)
			if tt.status == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	mem := cache.NewMemory()
	h := middleware.RateLimiter(mem, 2, time.Minute, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1235").Code)

	blocked := do("10.0.0.1:1236")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:1234").Code)
}

// brokenCounter lê o contador normalmente, mas o incremento falha.
type brokenCounter struct {
	*cache.Memory
}

func (brokenCounter) Incr(context.Context, string) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

func TestRateLimiter_IncrFailureLetsRequestThrough(t *testing.T) {
	mem := cache.NewMemory()
	require.NoError(t, mem.Set(context.Background(), "rate-limit:10.0.0.9", 1, time.Minute))

	h := middleware.RateLimiter(brokenCounter{mem}, 5, time.Minute, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
