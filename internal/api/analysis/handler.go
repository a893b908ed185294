package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"s8garante/internal/api/view"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"
	"s8garante/internal/pkg/respond"
)

// AnalysisService define o contrato que o Handler espera da camada de Serviço.
type AnalysisService interface {
	Create(ctx context.Context, actor authstate.State, req domain.AnalysisRequest) (domain.Analysis, error)
	Get(ctx context.Context, actor authstate.State, id string) (domain.Analysis, error)
	List(ctx context.Context, actor authstate.State, filter domain.AnalysisFilter) ([]domain.Analysis, error)
	Decide(ctx context.Context, actor authstate.State, id string, target domain.AnalysisStatus, note string) (domain.Analysis, error)
}

// DecisionRequest é o payload de POST /v1/admin/analises/{id}/decisao.
type DecisionRequest struct {
	Status domain.AnalysisStatus `json:"status" example:"Aprovado"`
	Notes  string                `json:"observacoes"`
}

// Handler agrupa os handlers de análises. As mesmas funções servem as rotas
// de imobiliária e de admin; o escopo vem do estado do ator.
type Handler struct {
	Service AnalysisService
	Logger  logger.Logger
}

func NewHandler(svc AnalysisService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		h.Logger.Debug("Requisição concluída com sucesso", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": successStatus,
		})
	}
	respond.Service(w, h.Logger, data, err, successStatus)
}

// ListHandler lida com GET /v1/imobiliaria/analises e GET /v1/admin/analises.
// @Summary Lista análises
// @Description Imobiliárias veem apenas as próprias análises. Ordenação: mais recentes primeiro.
// @Tags analises
// @Produce json
// @Param status query string false "Aguardando, Aprovado ou Rejeitado"
// @Param imobiliaria_id query string false "Filtro por imobiliária (admin)"
// @Param limite query int false "Quantidade máxima"
// @Success 200 {array} view.Analysis
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/analises [get]
// @Router /imobiliaria/analises [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AnalysisFilter{
		AgencyID: q.Get("imobiliaria_id"),
		Status:   domain.AnalysisStatus(q.Get("status")),
	}
	if raw := q.Get("limite"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError(fmt.Sprintf("limite inválido: %q", raw)), http.StatusOK)
			return
		}
		filter.Limit = limit
	}

	list, err := h.Service.List(r.Context(), middleware.StateFromContext(r.Context()), filter)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, view.NewAnalyses(list), nil, http.StatusOK)
}

// CreateHandler lida com POST /v1/imobiliaria/analises.
// @Summary Envia uma nova análise de locatário
// @Tags analises
// @Accept json
// @Produce json
// @Param analise body domain.AnalysisRequest true "Dados do locatário e plano"
// @Success 201 {object} view.Analysis
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /imobiliaria/analises [post]
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}

	a, err := h.Service.Create(r.Context(), middleware.StateFromContext(r.Context()), req)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}
	h.handleServiceResponse(w, r, view.NewAnalysis(a), nil, http.StatusCreated)
}

// GetHandler lida com GET /v1/imobiliaria/analises/{id} e GET /v1/admin/analises/{id}.
// @Summary Detalhe de uma análise
// @Tags analises
// @Produce json
// @Param id path string true "ID da análise"
// @Success 200 {object} view.Analysis
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/analises/{id} [get]
// @Router /imobiliaria/analises/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.Get(r.Context(), middleware.StateFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, view.NewAnalysis(a), nil, http.StatusOK)
}

// DecideHandler lida com POST /v1/admin/analises/{id}/decisao.
// @Summary Aprova ou rejeita uma análise
// @Description Só análises em Aguardando podem ser decididas; uma decisão concorrente devolve 409.
// @Tags analises
// @Accept json
// @Produce json
// @Param id path string true "ID da análise"
// @Param decisao body DecisionRequest true "Status final e observações"
// @Success 200 {object} view.Analysis
// @Failure 400 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Análise já decidida"
// @Security ApiKeyAuth
// @Router /admin/analises/{id}/decisao [post]
func (h *Handler) DecideHandler(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}

	a, err := h.Service.Decide(r.Context(), middleware.StateFromContext(r.Context()), r.PathValue("id"), req.Status, req.Notes)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, view.NewAnalysis(a), nil, http.StatusOK)
}
