package profile_test

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

	"s8garante/internal/api/profile"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"
)

type MockProfileService struct{ mock.Mock }

func (m *MockProfileService) GetOwnProfile(ctx context.Context, actor authstate.State) (domain.Profile, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(domain.Profile), args.Error(1)
}

func (m *MockProfileService) UpdateOwnProfile(ctx context.Context, actor authstate.State, upd domain.ProfileUpdate) (domain.Profile, error) {
	args := m.Called(ctx, actor, upd)
	return args.Get(0).(domain.Profile), args.Error(1)
}

func withState(req *http.Request) *http.Request {
	sess := &authstate.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	st := authstate.Authenticated(sess, &domain.Profile{ID: "u1", Type: domain.UserTypeAdmin, PasswordChanged: true})
	return req.WithContext(middleware.WithState(req.Context(), st))
}

func TestGetProfileHandler(t *testing.T) {
	svc := new(MockProfileService)
	h := profile.NewHandler(svc, logger.Nop())
	svc.On("GetOwnProfile", mock.Anything, mock.Anything).Return(domain.Profile{ID: "u1", Name: "Ana", Phone: "1133334444", Type: domain.UserTypeAdmin}, nil)

	rec := httptest.NewRecorder()
	h.GetProfileHandler(rec, withState(httptest.NewRequest(http.MethodGet, "/v1/perfil", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Ana", body["nome_responsavel"])
	assert.Equal(t, "(11) 3333-4444", body["telefone_formatado"])
}

func TestUpdateProfileHandler(t *testing.T) {
	svc := new(MockProfileService)
	h := profile.NewHandler(svc, logger.Nop())

	upd := domain.ProfileUpdate{Name: "A"}
	svc.On("UpdateOwnProfile", mock.Anything, mock.Anything, upd).Return(domain.Profile{}, apperror.NewValidationError("Nome do responsável é obrigatório."))

	rec := httptest.NewRecorder()
	h.UpdateProfileHandler(rec, withState(httptest.NewRequest(http.MethodPut, "/v1/perfil", strings.NewReader(`{"nome_responsavel":"A"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.UpdateProfileHandler(rec, withState(httptest.NewRequest(http.MethodPut, "/v1/perfil", strings.NewReader(`nope`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "UpdateOwnProfile", 1)
}
