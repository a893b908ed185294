package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"s8garante/internal/api/analysis"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

type MockAnalysisService struct{ mock.Mock }

func (m *MockAnalysisService) Create(ctx context.Context, actor authstate.State, req domain.AnalysisRequest) (domain.Analysis, error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) Get(ctx context.Context, actor authstate.State, id string) (domain.Analysis, error) {
	args := m.Called(ctx, actor, id)
	return args.Get(0).(domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) List(ctx context.Context, actor authstate.State, filter domain.AnalysisFilter) ([]domain.Analysis, error) {
	args := m.Called(ctx, actor, filter)
	return args.Get(0).([]domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) Decide(ctx context.Context, actor authstate.State, id string, target domain.AnalysisStatus, note string) (domain.Analysis, error) {
	args := m.Called(ctx, actor, id, target, note)
	return args.Get(0).(domain.Analysis), args.Error(1)
}

// serve passa pelo ServeMux para que r.PathValue funcione.
func serve(pattern string, fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, fn)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestListHandler_ParsesFilter(t *testing.T) {
	svc := new(MockAnalysisService)
	h := analysis.NewHandler(svc, logger.Nop())

	want := domain.AnalysisFilter{Status: domain.StatusAguardando, AgencyID: "i1", Limit: 5}
	svc.On("List", mock.Anything, mock.Anything, want).Return([]domain.Analysis{
		{ID: "a1", TenantCPF: "12345678909", Status: domain.StatusAguardando, SubmittedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)},
	}, nil)

	rec := httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/analises?status=Aguardando&imobiliaria_id=i1&limite=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "123.456.789-09", body[0]["cpf_formatado"])
	assert.Equal(t, "02/01/2024 às 03:04", body[0]["data_envio_formatada"])

	rec = httptest.NewRecorder()
	h.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/analises?limite=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "List", 1)
}

func TestCreateHandler(t *testing.T) {
	svc := new(MockAnalysisService)
	h := analysis.NewHandler(svc, logger.Nop())

	req := domain.AnalysisRequest{TenantName: "João Silva", TenantCPF: "12345678909", Plan: domain.PlanOuro}
	svc.On("Create", mock.Anything, mock.Anything, req).Return(domain.Analysis{ID: "a1", Status: domain.StatusAguardando}, nil)

	rec := httptest.NewRecorder()
	h.CreateHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/imobiliaria/analises",
		strings.NewReader(`{"nome_locatario":"João Silva","cpf_locatario":"12345678909","plano":"Ouro"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetHandler_NotFound(t *testing.T) {
	svc := new(MockAnalysisService)
	h := analysis.NewHandler(svc, logger.Nop())
	svc.On("Get", mock.Anything, mock.Anything, "a9").Return(domain.Analysis{}, apperror.NewNotFoundError("Análise não encontrada."))

	rec := serve("GET /v1/imobiliaria/analises/{id}", h.GetHandler, httptest.NewRequest(http.MethodGet, "/v1/imobiliaria/analises/a9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecideHandler(t *testing.T) {
	svc := new(MockAnalysisService)
	h := analysis.NewHandler(svc, logger.Nop())

	svc.On("Decide", mock.Anything, mock.Anything, "a1", domain.StatusAprovado, "ok").
		Return(domain.Analysis{ID: "a1", Status: domain.StatusAprovado}, nil)
	svc.On("Decide", mock.Anything, mock.Anything, "a2", domain.StatusRejeitado, "").
		Return(domain.Analysis{}, apperror.NewConflictError("A análise já foi decidida (Aprovado) por outro administrador."))

	rec := serve("POST /v1/admin/analises/{id}/decisao", h.DecideHandler,
		httptest.NewRequest(http.MethodPost, "/v1/admin/analises/a1/decisao", strings.NewReader(`{"status":"Aprovado","observacoes":"ok"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve("POST /v1/admin/analises/{id}/decisao", h.DecideHandler,
		httptest.NewRequest(http.MethodPost, "/v1/admin/analises/a2/decisao", strings.NewReader(`{"status":"Rejeitado"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	svc.AssertExpectations(t)
}
