package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"s8garante/internal/api/admin"
	"s8garante/internal/api/analysis"
	"s8garante/internal/api/auth"
	"s8garante/internal/api/dashboard"
	"s8garante/internal/api/document"
	"s8garante/internal/api/geo"
	"s8garante/internal/api/profile"
	"s8garante/internal/api/router"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/service/authservice"
)

// sessions aceita qualquer token no formato "<tipo>" e devolve uma sessão fixa.
type sessions struct{}

func (sessions) ValidateSession(_ context.Context, token string) (*authstate.Session, error) {
	if token == "" {
		return nil, errors.New("vazio")
	}
	return &authstate.Session{ID: token, UserID: "u-" + token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// states resolve o papel a partir do id da sessão.
type states struct{}

func (states) Resolve(_ context.Context, s *authstate.Session) authstate.State {
	if s == nil {
		return authstate.Anonymous()
	}
	switch s.ID {
	case "admin":
		return authstate.Authenticated(s, &domain.Profile{ID: s.UserID, Type: domain.UserTypeAdmin, PasswordChanged: true})
	case "imob-nova":
		return authstate.Authenticated(s, &domain.Profile{ID: s.UserID, Type: domain.UserTypeImobiliaria})
	case "carregando":
		return authstate.Loading(s)
	default:
		return authstate.Degraded(s)
	}
}

type dashboards struct{}

func (dashboards) Admin(context.Context, authstate.State) (domain.AdminDashboard, error) {
	return domain.AdminDashboard{}, nil
}

func (dashboards) Agency(context.Context, authstate.State) (domain.AgencyDashboard, error) {
	return domain.AgencyDashboard{}, nil
}

func newRouter() http.Handler {
	log := logger.Nop()
	return router.NewRouter(router.Handlers{
		Auth:      auth.NewHandler(nil, nil, log),
		Profile:   profile.NewHandler(nil, log),
		Analysis:  analysis.NewHandler(nil, log),
		Document:  document.NewHandler(nil, 1<<20, log),
		Admin:     admin.NewHandler(nil, nil, nil, log),
		Geo:       geo.NewHandler(nil, log),
		Dashboard: dashboard.NewHandler(dashboards{}, log),
	}, router.Options{
		Sessions:        sessions{},
		States:          states{},
		Cache:           cache.NewMemory(),
		RateLimitMax:    10,
		RateLimitPeriod: time.Minute,
		Logger:          log,
	})
}

func TestRouter_Guards(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"ping", http.MethodGet, "/ping", "", http.StatusOK},
		{"sessao anônima", http.MethodGet, "/v1/auth/sessao", "", http.StatusOK},
		{"dashboard admin sem sessão", http.MethodGet, "/v1/admin/dashboard", "", http.StatusUnauthorized},
		{"dashboard admin", http.MethodGet, "/v1/admin/dashboard", "admin", http.StatusOK},
		{"admin em rota de imobiliária", http.MethodGet, "/v1/imobiliaria/dashboard", "admin", http.StatusUnauthorized},
		{"imobiliária com senha provisória", http.MethodGet, "/v1/imobiliaria/dashboard", "imob-nova", http.StatusForbidden},
		{"perfil degradado", http.MethodGet, "/v1/perfil", "quebrado", http.StatusUnauthorized},
		{"perfil carregando", http.MethodGet, "/v1/perfil", "carregando", http.StatusServiceUnavailable},
		{"alterar-senha com senha já trocada", http.MethodPost, "/v1/auth/alterar-senha", "admin", http.StatusConflict},
		{"download anônimo", http.MethodGet, "/v1/documentos/d1/download", "", http.StatusUnauthorized},
		{"método errado", http.MethodDelete, "/v1/admin/analises", "admin", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

// accountStore faz o papel do banco e da fachada de autenticação: a troca de
// senha grava a flag, mas nenhum evento chega ao Provider.
type accountStore struct {
	mu      sync.Mutex
	changed bool
}

func (a *accountStore) GetUserProfile(_ context.Context, s *authstate.Session) (*domain.Profile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &domain.Profile{ID: s.UserID, Type: domain.UserTypeAdmin, PasswordChanged: a.changed}, nil
}

func (a *accountStore) SignOut(context.Context, *authstate.Session) error { return nil }

func (a *accountStore) UpdatePassword(context.Context, *authstate.Session, string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.changed = true
	return nil
}

func (a *accountStore) SignIn(context.Context, domain.Credentials) (authservice.SignInResult, error) {
	return authservice.SignInResult{}, nil
}

func (a *accountStore) SignUpAgency(context.Context, domain.AgencyRegistration) (domain.Profile, error) {
	return domain.Profile{}, nil
}

func (a *accountStore) ResetPassword(context.Context, string) error { return nil }

func (a *accountStore) ConfirmPasswordReset(context.Context, string, string) (string, error) {
	return "", nil
}

func TestRouter_ChangePasswordUnlocksNextRequest(t *testing.T) {
	log := logger.Nop()
	store := &accountStore{}
	notifier := authstate.NewNotifier()
	// Sem Start: o loop de eventos não processa nada durante o teste.
	provider := authstate.NewProvider(store, store, notifier, log)

	r := router.NewRouter(router.Handlers{
		Auth:      auth.NewHandler(store, provider, log),
		Dashboard: dashboard.NewHandler(dashboards{}, log),
	}, router.Options{
		Sessions:        sessions{},
		States:          provider,
		Cache:           cache.NewMemory(),
		RateLimitMax:    10,
		RateLimitPeriod: time.Minute,
		Logger:          log,
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer admin-novo")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/v1/admin/dashboard", "").Code)

	rec := do(http.MethodPost, "/v1/auth/alterar-senha", `{"password":"NovaSenha1","confirmacao":"NovaSenha1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/admin"`)

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/v1/admin/dashboard", "").Code)
}
