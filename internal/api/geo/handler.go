package geo

import (
	"context"
	"net/http"
	"strconv"

	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/respond"
)

// Locator é o cliente de localidades (IBGE e ViaCEP).
type Locator interface {
	States(ctx context.Context) ([]domain.BrazilianState, error)
	Cities(ctx context.Context, stateID int) ([]domain.City, error)
	LookupCEP(ctx context.Context, cep string) (domain.PostalLookup, error)
}

type Handler struct {
	Locator Locator
	Logger  logger.Logger
}

func NewHandler(locator Locator, log logger.Logger) *Handler {
	return &Handler{Locator: locator, Logger: log}
}

// StatesHandler lida com GET /v1/geo/estados.
// @Summary Lista as UFs ordenadas por nome
// @Tags geo
// @Produce json
// @Success 200 {array} domain.BrazilianState
// @Failure 500 {object} domain.ErrorResponse
// @Router /geo/estados [get]
func (h *Handler) StatesHandler(w http.ResponseWriter, r *http.Request) {
	states, err := h.Locator.States(r.Context())
	respond.Service(w, h.Logger, states, err, http.StatusOK)
}

// CitiesHandler lida com GET /v1/geo/estados/{id}/municipios.
// @Summary Lista os municípios de uma UF
// @Tags geo
// @Produce json
// @Param id path int true "ID IBGE da UF"
// @Success 200 {array} domain.City
// @Failure 400 {object} domain.ErrorResponse
// @Router /geo/estados/{id}/municipios [get]
func (h *Handler) CitiesHandler(w http.ResponseWriter, r *http.Request) {
	stateID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || stateID <= 0 {
		respond.Error(w, h.Logger, apperror.NewValidationError("ID de estado inválido."))
		return
	}

	cities, err := h.Locator.Cities(r.Context(), stateID)
	respond.Service(w, h.Logger, cities, err, http.StatusOK)
}

// CEPHandler lida com GET /v1/geo/cep/{cep}.
// @Summary Consulta um CEP
// @Tags geo
// @Produce json
// @Param cep path string true "CEP (8 dígitos, com ou sem hífen)"
// @Success 200 {object} domain.PostalLookup
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse "CEP não encontrado"
// @Router /geo/cep/{cep} [get]
func (h *Handler) CEPHandler(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.Locator.LookupCEP(r.Context(), r.PathValue("cep"))
	respond.Service(w, h.Logger, lookup, err, http.StatusOK)
}
