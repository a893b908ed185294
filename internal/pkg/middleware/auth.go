package middleware

import (
	"context"
	"net/http"
	"strings"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	"s8garante/internal/guard"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/respond"
)

// ContextKey identifica os valores guardados no contexto da requisição.
// Context Keys devem ser não-exportadas e de um tipo único.
type ContextKey int

const (
	sessionKey ContextKey = iota
	stateKey
)

// SessionValidator transforma o token Bearer em sessão (fachada de autenticação).
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*authstate.Session, error)
}

// StateResolver resolve o estado de autenticação de uma sessão (Provider).
type StateResolver interface {
	Resolve(ctx context.Context, session *authstate.Session) authstate.State
}

// Authenticate lê o header Authorization: Bearer <token> e anexa a sessão ao
// contexto. Token ausente ou inválido segue como anônimo; quem decide o
// acesso é o Guard de cada rota.
func Authenticate(validator SessionValidator, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := validator.ValidateSession(r.Context(), tokenString)
			if err != nil {
				log.Debug("Token rejeitado; requisição segue como anônima.", map[string]interface{}{"error": err.Error(), "path": r.URL.Path})
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

// SessionFromContext devolve a sessão anexada por Authenticate, ou nil.
func SessionFromContext(ctx context.Context) *authstate.Session {
	s, _ := ctx.Value(sessionKey).(*authstate.Session)
	return s
}

// StateFromContext devolve o estado anexado pelo Guard; Anonymous se não houver.
func StateFromContext(ctx context.Context) authstate.State {
	st, ok := ctx.Value(stateKey).(authstate.State)
	if !ok {
		return authstate.Anonymous()
	}
	return st
}

// WithState anexa um estado ao contexto (usado pelo Guard e por testes de handlers).
func WithState(ctx context.Context, st authstate.State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// Guard avalia a rota a cada requisição: o estado é resolvido pelo Provider e
// a decisão vem de guard.Evaluate. Redirecionamentos não revelam a página.
func Guard(resolver StateResolver, req guard.Requirement) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			st := resolver.Resolve(r.Context(), SessionFromContext(r.Context()))
			decision := guard.Evaluate(st, req)
			if !decision.Allowed() {
				WriteDecision(w, decision)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), st)))
		}
	}
}

// Resolve anexa o estado atual sem bloquear a rota (rotas públicas como /v1/auth/sessao).
func Resolve(resolver StateResolver) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			st := resolver.Resolve(r.Context(), SessionFromContext(r.Context()))
			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), st)))
		}
	}
}

// WriteDecision traduz uma decisão negativa do guard para HTTP.
func WriteDecision(w http.ResponseWriter, d guard.Decision) {
	var resp domain.ErrorResponse
	switch d.Outcome {
	case guard.OutcomeWait:
		w.Header().Set("Retry-After", "1")
		resp = domain.ErrorResponse{Code: http.StatusServiceUnavailable, Category: "SESSION_LOADING", Message: "Carregando sessão."}
	case guard.OutcomeRedirectPasswordChange:
		resp = domain.ErrorResponse{Code: http.StatusForbidden, Category: "PASSWORD_CHANGE_REQUIRED", Message: "É necessário alterar a senha provisória.", Redirect: d.Redirect}
	case guard.OutcomeRedirectHome:
		resp = domain.ErrorResponse{Code: http.StatusConflict, Category: "REDIRECT", Message: "Senha já alterada.", Redirect: d.Redirect}
	default:
		resp = domain.ErrorResponse{Code: http.StatusUnauthorized, Category: "UNAUTHORIZED", Message: "Faça login para continuar.", Redirect: guard.SignInRoute}
	}
	respond.JSON(w, resp.Code, resp)
}
