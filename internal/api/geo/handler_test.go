package geo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"s8garante/internal/api/geo"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

type MockLocator struct{ mock.Mock }

func (m *MockLocator) States(ctx context.Context) ([]domain.BrazilianState, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.BrazilianState), args.Error(1)
}

func (m *MockLocator) Cities(ctx context.Context, stateID int) ([]domain.City, error) {
	args := m.Called(ctx, stateID)
	return args.Get(0).([]domain.City), args.Error(1)
}

func (m *MockLocator) LookupCEP(ctx context.Context, cep string) (domain.PostalLookup, error) {
	args := m.Called(ctx, cep)
	return args.Get(0).(domain.PostalLookup), args.Error(1)
}

func mux(h *geo.Handler) *http.ServeMux {
	m := http.NewServeMux()
	m.HandleFunc("GET /v1/geo/estados", h.StatesHandler)
	m.HandleFunc("GET /v1/geo/estados/{id}/municipios", h.CitiesHandler)
	m.HandleFunc("GET /v1/geo/cep/{cep}", h.CEPHandler)
	return m
}

func TestGeoHandlers(t *testing.T) {
	loc := new(MockLocator)
	h := geo.NewHandler(loc, logger.Nop())

	loc.On("States", mock.Anything).Return([]domain.BrazilianState{{ID: 35, Acronym: "SP", Name: "São Paulo"}}, nil)
	loc.On("Cities", mock.Anything, 35).Return([]domain.City{{ID: 3550308, Name: "São Paulo"}}, nil)
	loc.On("LookupCEP", mock.Anything, "01001-000").Return(domain.PostalLookup{CEP: "01001-000", City: "São Paulo", State: "SP"}, nil)
	loc.On("LookupCEP", mock.Anything, "99999999").Return(domain.PostalLookup{}, apperror.NewNotFoundError("CEP não encontrado."))

	rec := httptest.NewRecorder()
	mux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/geo/estados", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var states []domain.BrazilianState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	assert.Equal(t, "SP", states[0].Acronym)

	rec = httptest.NewRecorder()
	mux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/geo/estados/35/municipios", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/geo/estados/abc/municipios", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/geo/cep/01001-000", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/geo/cep/99999999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	loc.AssertExpectations(t)
}
