package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"s8garante/internal/api/admin"
	"s8garante/internal/api/analysis"
	"s8garante/internal/api/auth"
	"s8garante/internal/api/dashboard"
	"s8garante/internal/api/document"
	"s8garante/internal/api/geo"
	"s8garante/internal/api/profile"
	"s8garante/internal/guard"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"

	_ "s8garante/docs" // Documentação Swagger gerada pelo swag
)

// Handlers reúne os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Auth      *auth.Handler
	Profile   *profile.Handler
	Analysis  *analysis.Handler
	Document  *document.Handler
	Admin     *admin.Handler
	Geo       *geo.Handler
	Dashboard *dashboard.Handler
}

// Options configura os middlewares globais.
type Options struct {
	Sessions        middleware.SessionValidator
	States          middleware.StateResolver
	Cache           cache.Client
	RateLimitMax    int
	RateLimitPeriod time.Duration
	Logger          logger.Logger
}

// NewRouter configura e retorna o roteador HTTP principal.
// Toda requisição passa por Authenticate; cada rota declara o seu guard.
func NewRouter(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	limited := middleware.RateLimiter(opts.Cache, opts.RateLimitMax, opts.RateLimitPeriod, opts.Logger)
	guarded := func(req guard.Requirement, fn http.HandlerFunc) http.HandlerFunc {
		return middleware.Guard(opts.States, req)(fn)
	}
	adminOnly := func(fn http.HandlerFunc) http.HandlerFunc { return guarded(guard.RequireAdmin, fn) }
	agencyOnly := func(fn http.HandlerFunc) http.HandlerFunc { return guarded(guard.RequireImobiliaria, fn) }

	// --- Health check e documentação ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// --- Autenticação ---
	mux.Handle("POST /v1/auth/login", limited(http.HandlerFunc(h.Auth.LoginHandler)))
	mux.Handle("POST /v1/auth/cadastro", limited(http.HandlerFunc(h.Auth.SignUpHandler)))
	mux.Handle("POST /v1/auth/esqueci-senha", limited(http.HandlerFunc(h.Auth.ForgotPasswordHandler)))
	mux.Handle("POST /v1/auth/redefinir-senha", limited(http.HandlerFunc(h.Auth.ResetPasswordHandler)))
	mux.HandleFunc("POST /v1/auth/logout", h.Auth.LogoutHandler)
	mux.HandleFunc("GET /v1/auth/sessao", middleware.Resolve(opts.States)(h.Auth.SessionHandler))
	mux.HandleFunc("POST /v1/auth/alterar-senha", guarded(guard.RequirePassword, h.Auth.ChangePasswordHandler))

	// --- Perfil ---
	mux.HandleFunc("GET /v1/perfil", guarded(guard.RequireAnyRole, h.Profile.GetProfileHandler))
	mux.HandleFunc("PUT /v1/perfil", guarded(guard.RequireAnyRole, h.Profile.UpdateProfileHandler))

	// --- Área da imobiliária ---
	mux.HandleFunc("GET /v1/imobiliaria/dashboard", agencyOnly(h.Dashboard.AgencyHandler))
	mux.HandleFunc("GET /v1/imobiliaria/analises", agencyOnly(h.Analysis.ListHandler))
	mux.HandleFunc("POST /v1/imobiliaria/analises", agencyOnly(h.Analysis.CreateHandler))
	mux.HandleFunc("GET /v1/imobiliaria/analises/{id}", agencyOnly(h.Analysis.GetHandler))
	mux.HandleFunc("GET /v1/imobiliaria/analises/{id}/documentos", agencyOnly(h.Document.ListHandler))
	mux.HandleFunc("POST /v1/imobiliaria/analises/{id}/documentos", agencyOnly(h.Document.UploadHandler))

	// --- Área administrativa ---
	mux.HandleFunc("GET /v1/admin/dashboard", adminOnly(h.Dashboard.AdminHandler))
	mux.HandleFunc("GET /v1/admin/analises", adminOnly(h.Analysis.ListHandler))
	mux.HandleFunc("GET /v1/admin/analises/{id}", adminOnly(h.Analysis.GetHandler))
	mux.HandleFunc("POST /v1/admin/analises/{id}/decisao", adminOnly(h.Analysis.DecideHandler))
	mux.HandleFunc("GET /v1/admin/analises/{id}/documentos", adminOnly(h.Document.ListHandler))
	mux.HandleFunc("POST /v1/admin/analises/{id}/documentos", adminOnly(h.Document.UploadHandler))
	mux.HandleFunc("GET /v1/admin/imobiliarias", adminOnly(h.Admin.ListAgenciesHandler))
	mux.HandleFunc("POST /v1/admin/imobiliarias", adminOnly(h.Admin.ProvisionAgencyHandler))
	mux.HandleFunc("GET /v1/admin/imobiliarias/{id}", adminOnly(h.Admin.GetAgencyHandler))
	mux.HandleFunc("PUT /v1/admin/imobiliarias/{id}", adminOnly(h.Admin.UpdateAgencyHandler))
	mux.HandleFunc("POST /v1/admin/imobiliarias/{id}/redefinir-senha", adminOnly(h.Admin.ResetAgencyPasswordHandler))
	mux.HandleFunc("GET /v1/admin/usuarios", adminOnly(h.Admin.ListAdminsHandler))
	mux.HandleFunc("POST /v1/admin/usuarios", adminOnly(h.Admin.ProvisionAdminHandler))

	// --- Documentos e localidades ---
	mux.HandleFunc("GET /v1/documentos/{id}/download", guarded(guard.RequireAnyRole, h.Document.DownloadHandler))
	mux.HandleFunc("GET /v1/geo/estados", h.Geo.StatesHandler)
	mux.HandleFunc("GET /v1/geo/estados/{id}/municipios", h.Geo.CitiesHandler)
	mux.HandleFunc("GET /v1/geo/cep/{cep}", h.Geo.CEPHandler)

	return middleware.Authenticate(opts.Sessions, opts.Logger)(mux)
}

// PingHandler é o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
