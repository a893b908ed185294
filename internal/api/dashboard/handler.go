package dashboard

import (
	"context"
	"net/http"

	"s8garante/internal/api/view"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"
	"s8garante/internal/pkg/respond"
)

// DashboardService monta os painéis.
type DashboardService interface {
	Admin(ctx context.Context, actor authstate.State) (domain.AdminDashboard, error)
	Agency(ctx context.Context, actor authstate.State) (domain.AgencyDashboard, error)
}

// AdminResponse é o painel do admin com as análises recentes formatadas.
type AdminResponse struct {
	domain.AdminDashboard
	Recent []view.Analysis `json:"recentes"`
}

// AgencyResponse é o painel da imobiliária com as análises recentes formatadas.
type AgencyResponse struct {
	domain.AgencyDashboard
	Recent []view.Analysis `json:"recentes"`
}

type Handler struct {
	Service DashboardService
	Logger  logger.Logger
}

func NewHandler(svc DashboardService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// AdminHandler lida com GET /v1/admin/dashboard.
// @Summary Painel do administrador
// @Tags dashboard
// @Produce json
// @Success 200 {object} AdminResponse
// @Security ApiKeyAuth
// @Router /admin/dashboard [get]
func (h *Handler) AdminHandler(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Admin(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, AdminResponse{AdminDashboard: d, Recent: view.NewAnalyses(d.Recent)})
}

// AgencyHandler lida com GET /v1/imobiliaria/dashboard.
// @Summary Painel da imobiliária
// @Tags dashboard
// @Produce json
// @Success 200 {object} AgencyResponse
// @Security ApiKeyAuth
// @Router /imobiliaria/dashboard [get]
func (h *Handler) AgencyHandler(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Agency(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, AgencyResponse{AgencyDashboard: d, Recent: view.NewAnalyses(d.Recent)})
}
