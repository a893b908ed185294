package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"s8garante/internal/api/view"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"
	"s8garante/internal/pkg/respond"
)

// Provisioner cria contas em nome do admin (fachada de autenticação).
type Provisioner interface {
	ProvisionAgency(ctx context.Context, actor authstate.State, reg domain.AgencyRegistration) (domain.Provisioned, error)
	ProvisionAdmin(ctx context.Context, actor authstate.State, email, name string) (domain.Provisioned, error)
	ResetAgencyPassword(ctx context.Context, actor authstate.State, agencyID string) (domain.Provisioned, error)
}

// ProfileService lê e edita perfis de imobiliárias e administradores.
type ProfileService interface {
	ListAgencies(ctx context.Context, actor authstate.State) ([]domain.Profile, error)
	ListAdmins(ctx context.Context, actor authstate.State) ([]domain.Profile, error)
	GetAgency(ctx context.Context, actor authstate.State, id string) (domain.Profile, error)
	UpdateAgency(ctx context.Context, actor authstate.State, id string, upd domain.ProfileUpdate) (domain.Profile, error)
}

// AnalysisLister lista as análises de uma imobiliária para a tela de detalhe.
type AnalysisLister interface {
	ListByAgency(ctx context.Context, actor authstate.State, agencyID string) ([]domain.Analysis, error)
}

// NewAdminRequest é o payload de POST /v1/admin/usuarios.
type NewAdminRequest struct {
	Email string `json:"email"`
	Name  string `json:"nome_responsavel"`
}

// AgencyDetail é a imobiliária com suas análises.
type AgencyDetail struct {
	Agency   view.Profile    `json:"imobiliaria"`
	Analyses []view.Analysis `json:"analises"`
}

// Handler agrupa os handlers da área administrativa de imobiliárias e usuários.
type Handler struct {
	Accounts Provisioner
	Profiles ProfileService
	Analyses AnalysisLister
	Logger   logger.Logger
}

func NewHandler(accounts Provisioner, profiles ProfileService, analyses AnalysisLister, log logger.Logger) *Handler {
	return &Handler{Accounts: accounts, Profiles: profiles, Analyses: analyses, Logger: log}
}

// ListAgenciesHandler lida com GET /v1/admin/imobiliarias.
// @Summary Lista imobiliárias
// @Tags admin
// @Produce json
// @Success 200 {array} view.Profile
// @Security ApiKeyAuth
// @Router /admin/imobiliarias [get]
func (h *Handler) ListAgenciesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Profiles.ListAgencies(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view.NewProfiles(list))
}

// ProvisionAgencyHandler lida com POST /v1/admin/imobiliarias.
// @Summary Cadastra uma imobiliária com senha provisória
// @Description A senha provisória aparece apenas nesta resposta; a imobiliária deverá trocá-la no primeiro acesso.
// @Tags admin
// @Accept json
// @Produce json
// @Param imobiliaria body domain.AgencyRegistration true "Dados da imobiliária (password é ignorado)"
// @Success 201 {object} view.Provisioned
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/imobiliarias [post]
func (h *Handler) ProvisionAgencyHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.AgencyRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		respond.Error(w, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	p, err := h.Accounts.ProvisionAgency(r.Context(), middleware.StateFromContext(r.Context()), reg)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view.NewProvisioned(p))
}

// GetAgencyHandler lida com GET /v1/admin/imobiliarias/{id}.
// @Summary Detalhe da imobiliária com suas análises
// @Tags admin
// @Produce json
// @Param id path string true "ID da imobiliária"
// @Success 200 {object} AgencyDetail
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/imobiliarias/{id} [get]
func (h *Handler) GetAgencyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.StateFromContext(ctx)
	id := r.PathValue("id")

	agency, err := h.Profiles.GetAgency(ctx, actor, id)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	analyses, err := h.Analyses.ListByAgency(ctx, actor, id)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, AgencyDetail{Agency: view.NewProfile(agency), Analyses: view.NewAnalyses(analyses)})
}

// UpdateAgencyHandler lida com PUT /v1/admin/imobiliarias/{id}.
// @Summary Atualiza os dados de uma imobiliária
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "ID da imobiliária"
// @Param perfil body domain.ProfileUpdate true "Campos editáveis"
// @Success 200 {object} view.Profile
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/imobiliarias/{id} [put]
func (h *Handler) UpdateAgencyHandler(w http.ResponseWriter, r *http.Request) {
	var upd domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respond.Error(w, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	p, err := h.Profiles.UpdateAgency(r.Context(), middleware.StateFromContext(r.Context()), r.PathValue("id"), upd)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view.NewProfile(p))
}

// ResetAgencyPasswordHandler lida com POST /v1/admin/imobiliarias/{id}/redefinir-senha.
// @Summary Gera nova senha provisória para a imobiliária
// @Tags admin
// @Produce json
// @Param id path string true "ID da imobiliária"
// @Success 200 {object} view.Provisioned
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/imobiliarias/{id}/redefinir-senha [post]
func (h *Handler) ResetAgencyPasswordHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.Accounts.ResetAgencyPassword(r.Context(), middleware.StateFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view.NewProvisioned(p))
}

// ListAdminsHandler lida com GET /v1/admin/usuarios.
// @Summary Lista administradores
// @Tags admin
// @Produce json
// @Success 200 {array} view.Profile
// @Security ApiKeyAuth
// @Router /admin/usuarios [get]
func (h *Handler) ListAdminsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Profiles.ListAdmins(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view.NewProfiles(list))
}

// ProvisionAdminHandler lida com POST /v1/admin/usuarios.
// @Summary Cadastra um novo administrador com senha provisória
// @Tags admin
// @Accept json
// @Produce json
// @Param usuario body NewAdminRequest true "E-mail e nome"
// @Success 201 {object} view.Provisioned
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "E-mail já cadastrado"
// @Security ApiKeyAuth
// @Router /admin/usuarios [post]
func (h *Handler) ProvisionAdminHandler(w http.ResponseWriter, r *http.Request) {
	var req NewAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	p, err := h.Accounts.ProvisionAdmin(r.Context(), middleware.StateFromContext(r.Context()), req.Email, req.Name)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	h.Logger.Info("Administrador provisionado.", map[string]interface{}{"user_id": p.Profile.ID})
	respond.JSON(w, http.StatusCreated, view.NewProvisioned(p))
}
