package profile

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

// ProfileService define o contrato que o Handler espera da camada de Serviço.
type ProfileService interface {
	GetOwnProfile(ctx context.Context, actor authstate.State) (domain.Profile, error)
	UpdateOwnProfile(ctx context.Context, actor authstate.State, upd domain.ProfileUpdate) (domain.Profile, error)
}

// Handler agrupa os handlers de /v1/perfil.
type Handler struct {
	Service ProfileService
	Logger  logger.Logger
}

func NewHandler(svc ProfileService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// GetProfileHandler lida com a requisição GET /v1/perfil.
// @Summary Perfil do usuário autenticado
// @Tags perfil
// @Produce json
// @Success 200 {object} view.Profile
// @Failure 401 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /perfil [get]
func (h *Handler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetOwnProfile(r.Context(), middleware.StateFromContext(r.Context()))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view.NewProfile(p))
}

// UpdateProfileHandler lida com a requisição PUT /v1/perfil.
// @Summary Atualiza o perfil do usuário autenticado
// @Description O tipo de usuário não é alterável. Imobiliárias podem enviar só o CEP; o endereço é completado.
// @Tags perfil
// @Accept json
// @Produce json
// @Param perfil body domain.ProfileUpdate true "Campos editáveis"
// @Success 200 {object} view.Profile
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /perfil [put]
func (h *Handler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var upd domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respond.Error(w, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}

	p, err := h.Service.UpdateOwnProfile(r.Context(), middleware.StateFromContext(r.Context()), upd)
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	h.Logger.Info("Perfil atualizado.", map[string]interface{}{"user_id": p.ID})
	respond.JSON(w, http.StatusOK, view.NewProfile(p))
}
