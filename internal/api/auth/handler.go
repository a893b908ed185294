package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"s8garante/internal/api/view"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/guard"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"
	"s8garante/internal/pkg/respond"
	"s8garante/internal/service/authservice"
)

// AuthService define o contrato que o Handler espera da fachada de autenticação.
type AuthService interface {
	SignIn(ctx context.Context, creds domain.Credentials) (authservice.SignInResult, error)
	SignUpAgency(ctx context.Context, reg domain.AgencyRegistration) (domain.Profile, error)
	UpdatePassword(ctx context.Context, session *authstate.Session, newPassword string) error
	ResetPassword(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) (string, error)
}

// SessionManager é a parte do Provider usada aqui: encerra sessões e relê o
// perfil logo após escritas feitas por estes handlers.
type SessionManager interface {
	SignOut(ctx context.Context, session *authstate.Session) error
	RefreshProfile(ctx context.Context, sessionID string) authstate.State
	RefreshUser(ctx context.Context, userID string)
}

// ForgotPasswordRequest é o payload de POST /v1/auth/esqueci-senha.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest é o payload de POST /v1/auth/redefinir-senha.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ChangePasswordRequest é o payload de POST /v1/auth/alterar-senha.
type ChangePasswordRequest struct {
	Password     string `json:"password"`
	Confirmation string `json:"confirmacao"`
}

// MessageResponse é uma resposta simples com mensagem e, opcionalmente, destino.
type MessageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// Handler agrupa os handlers de autenticação.
type Handler struct {
	Service  AuthService
	Sessions SessionManager
	Logger   logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc AuthService, sessions SessionManager, log logger.Logger) *Handler {
	return &Handler{Service: svc, Sessions: sessions, Logger: log}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err != nil {
		status, category, _ := apperror.MapToHTTPStatus(err)
		if status < http.StatusInternalServerError {
			h.Logger.Debug("Requisição rejeitada.", map[string]interface{}{"path": r.URL.Path, "status": status, "category": category})
		}
	}
	respond.Service(w, h.Logger, data, err, successStatus)
}

// LoginHandler lida com a requisição POST /v1/auth/login.
// @Summary Autentica um usuário
// @Description Confere e-mail e senha e abre uma sessão (JWT cujo jti é o id da sessão).
// @Tags auth
// @Accept json
// @Produce json
// @Param login body domain.Credentials true "E-mail e senha"
// @Success 200 {object} authservice.SignInResult "Sessão aberta"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "E-mail ou senha incorretos"
// @Failure 429 {object} domain.ErrorResponse "Muitas tentativas"
// @Router /auth/login [post]
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}

	result, err := h.Service.SignIn(r.Context(), creds)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// SignUpHandler lida com a requisição POST /v1/auth/cadastro.
// @Summary Cadastro de imobiliária
// @Description Cria a conta e o perfil de uma imobiliária. O endereço é completado pelo CEP quando possível.
// @Tags auth
// @Accept json
// @Produce json
// @Param cadastro body domain.AgencyRegistration true "Dados do cadastro"
// @Success 201 {object} view.Profile "Imobiliária cadastrada"
// @Failure 400 {object} domain.ErrorResponse "Campos obrigatórios ausentes ou senha fraca"
// @Failure 409 {object} domain.ErrorResponse "E-mail já cadastrado"
// @Router /auth/cadastro [post]
func (h *Handler) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var reg domain.AgencyRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}

	profile, err := h.Service.SignUpAgency(r.Context(), reg)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusCreated)
		return
	}
	h.handleServiceResponse(w, r, view.NewProfile(profile), nil, http.StatusCreated)
}

// LogoutHandler lida com a requisição POST /v1/auth/logout.
// @Summary Encerra a sessão atual
// @Tags auth
// @Success 204 "Sessão encerrada"
// @Failure 401 {object} domain.ErrorResponse "Sem sessão"
// @Security ApiKeyAuth
// @Router /auth/logout [post]
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		h.handleServiceResponse(w, r, nil, apperror.NewUnauthorizedError("Sessão ausente."), http.StatusNoContent)
		return
	}

	err := h.Sessions.SignOut(r.Context(), session)
	h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)
}

// ForgotPasswordHandler lida com a requisição POST /v1/auth/esqueci-senha.
// @Summary Solicita a redefinição de senha
// @Description A resposta é a mesma para e-mails cadastrados ou não.
// @Tags auth
// @Accept json
// @Produce json
// @Param pedido body ForgotPasswordRequest true "E-mail da conta"
// @Success 202 {object} MessageResponse "Pedido registrado"
// @Failure 400 {object} domain.ErrorResponse "E-mail inválido"
// @Router /auth/esqueci-senha [post]
func (h *Handler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusAccepted)
		return
	}

	err := h.Service.ResetPassword(r.Context(), req.Email)
	h.handleServiceResponse(w, r, MessageResponse{
		Message: "Se o e-mail estiver cadastrado, você receberá um link para redefinir a senha.",
	}, err, http.StatusAccepted)
}

// ResetPasswordHandler lida com a requisição POST /v1/auth/redefinir-senha.
// @Summary Redefine a senha com o token recebido por e-mail
// @Tags auth
// @Accept json
// @Produce json
// @Param redefinicao body ResetPasswordRequest true "Token e nova senha"
// @Success 200 {object} MessageResponse "Senha redefinida"
// @Failure 400 {object} domain.ErrorResponse "Link inválido ou senha fraca"
// @Router /auth/redefinir-senha [post]
func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}

	userID, err := h.Service.ConfirmPasswordReset(r.Context(), req.Token, req.Password)
	if err == nil {
		h.Sessions.RefreshUser(r.Context(), userID)
	}
	h.handleServiceResponse(w, r, MessageResponse{Message: "Senha redefinida.", Redirect: guard.SignInRoute}, err, http.StatusOK)
}

// SessionHandler lida com a requisição GET /v1/auth/sessao.
// @Summary Estado de autenticação atual
// @Description Devolve a fase (loading, anonymous, degraded, authenticated) e o perfil quando carregado.
// @Tags auth
// @Produce json
// @Success 200 {object} authstate.Snapshot "Estado atual"
// @Router /auth/sessao [get]
func (h *Handler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	st := middleware.StateFromContext(r.Context())
	h.handleServiceResponse(w, r, st.Snapshot(), nil, http.StatusOK)
}

// ChangePasswordHandler lida com a requisição POST /v1/auth/alterar-senha.
// @Summary Troca a senha provisória
// @Tags auth
// @Accept json
// @Produce json
// @Param senha body ChangePasswordRequest true "Nova senha e confirmação"
// @Success 200 {object} MessageResponse "Senha alterada; redirect aponta para a página inicial do papel"
// @Failure 400 {object} domain.ErrorResponse "Senha fraca, igual à atual ou confirmação diferente"
// @Failure 500 {object} domain.ErrorResponse "Falha parcial na troca de senha"
// @Security ApiKeyAuth
// @Router /auth/alterar-senha [post]
func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}
	if req.Password != req.Confirmation {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("As senhas não coincidem."), http.StatusOK)
		return
	}

	st := middleware.StateFromContext(r.Context())
	if err := h.Service.UpdatePassword(r.Context(), st.Session, req.Password); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	// A próxima requisição já precisa ver senha_alterada = true.
	if refreshed := h.Sessions.RefreshProfile(r.Context(), st.Session.ID); refreshed.IsAuthenticated() {
		st = refreshed
	}

	redirect := guard.SignInRoute
	if st.Profile != nil {
		redirect = guard.Home(st.Profile.Type)
	}
	h.handleServiceResponse(w, r, MessageResponse{Message: "Senha alterada.", Redirect: redirect}, nil, http.StatusOK)
}
