package authservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/cache"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/password"
	"s8garante/internal/pkg/token"
)

// AccountRepository define o contrato de credenciais esperado pela fachada.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
	FindByID(ctx context.Context, id string) (domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

// ProfileRepository define o contrato de perfis esperado pela fachada.
type ProfileRepository interface {
	Upsert(ctx context.Context, p domain.Profile) error
	FindByID(ctx context.Context, id string) (domain.Profile, error)
	SetPasswordChanged(ctx context.Context, id string, changed bool, at *time.Time) error
}

// TokenService emite e valida os tokens de sessão.
type TokenService interface {
	GenerateToken(userID, email string) (string, *token.CustomClaims, error)
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// Publisher recebe os eventos de autenticação (implementado por authstate.Notifier).
type Publisher interface {
	Publish(ev authstate.Event)
}

// PostalLookup consulta um CEP para preencher o endereço.
type PostalLookup interface {
	LookupCEP(ctx context.Context, cep string) (domain.PostalLookup, error)
}

// Options reúne os parâmetros de comportamento da fachada.
type Options struct {
	AppBaseURL       string
	PasswordResetTTL time.Duration
	// Tentativas extras ao gravar senha_alterada depois da troca da credencial.
	FlagRetries uint64
	FlagBackoff time.Duration
}

// Deps são as dependências da fachada. Postal é opcional.
type Deps struct {
	Accounts AccountRepository
	Profiles ProfileRepository
	Tokens   TokenService
	Cache    cache.Client
	Events   Publisher
	Mailer   Mailer
	Postal   PostalLookup
	Logger   logger.Logger
}

// SignInResult é a sessão aberta por SignIn.
type SignInResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Session   *authstate.Session `json:"sessao"`
	Profile   *domain.Profile    `json:"perfil,omitempty"`
}

// Service é a fachada de autenticação: sessões, credenciais e provisionamento.
type Service struct {
	accounts AccountRepository
	profiles ProfileRepository
	tokens   TokenService
	cache    cache.Client
	events   Publisher
	mailer   Mailer
	postal   PostalLookup
	logger   logger.Logger
	opts     Options
	now      func() time.Time
}

// NewService cria e retorna uma nova instância da fachada de autenticação.
func NewService(deps Deps, opts Options) *Service {
	if opts.FlagBackoff <= 0 {
		opts.FlagBackoff = 100 * time.Millisecond
	}
	return &Service{
		accounts: deps.Accounts,
		profiles: deps.Profiles,
		tokens:   deps.Tokens,
		cache:    deps.Cache,
		events:   deps.Events,
		mailer:   deps.Mailer,
		postal:   deps.Postal,
		logger:   deps.Logger,
		opts:     opts,
		now:      time.Now,
	}
}

const (
	revokedKeyPrefix = "session:revoked:"
	resetKeyPrefix   = "password-reset:"
)

var errInvalidCredentials = apperror.NewUnauthorizedError("E-mail ou senha incorretos.")

// SignIn confere a credencial e abre uma sessão.
func (s *Service) SignIn(ctx context.Context, creds domain.Credentials) (SignInResult, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || creds.Password == "" {
		return SignInResult{}, apperror.NewValidationError("E-mail e senha são obrigatórios.")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			s.logger.Info("Tentativa de login com e-mail desconhecido.", map[string]interface{}{"email": email})
			return SignInResult{}, errInvalidCredentials
		}
		return SignInResult{}, err
	}

	if !password.Compare(account.PasswordHash, creds.Password) {
		s.logger.Info("Tentativa de login com senha incorreta.", map[string]interface{}{"user_id": account.ID})
		return SignInResult{}, errInvalidCredentials
	}

	tokenString, claims, err := s.tokens.GenerateToken(account.ID, account.Email)
	if err != nil {
		return SignInResult{}, apperror.NewInternalError("Falha ao gerar o token de sessão.", err)
	}

	session := sessionFromClaims(claims)
	profile, err := s.GetUserProfile(ctx, session)
	if err != nil {
		// A sessão continua válida; o provider a tratará como degradada.
		s.logger.Warn("Perfil indisponível no login.", map[string]interface{}{"user_id": account.ID, "error": err.Error()})
	}

	s.events.Publish(authstate.Event{Kind: authstate.EventSignedIn, Session: session, UserID: session.UserID})
	s.logger.Info("Login realizado.", map[string]interface{}{"user_id": account.ID, "session_id": session.ID})

	return SignInResult{Token: tokenString, ExpiresAt: session.ExpiresAt, Session: session, Profile: profile}, nil
}

func sessionFromClaims(c *token.CustomClaims) *authstate.Session {
	s := &authstate.Session{ID: c.SessionID(), UserID: c.UserID, Email: c.Email}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// ValidateSession transforma um token em sessão ativa. Tokens de sessões
// encerradas são rejeitados; se a lista de revogação estiver inacessível a
// sessão também é rejeitada.
func (s *Service) ValidateSession(ctx context.Context, tokenString string) (*authstate.Session, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, apperror.NewUnauthorizedError("Sessão inválida ou expirada.")
	}

	revoked, err := s.cache.Exists(ctx, revokedKeyPrefix+claims.SessionID())
	if err != nil {
		s.logger.Error("Falha ao consultar revogação de sessão.", err)
		return nil, apperror.NewInternalError("Não foi possível validar a sessão.", err)
	}
	if revoked {
		return nil, apperror.NewUnauthorizedError("Sessão encerrada.")
	}
	return sessionFromClaims(claims), nil
}

// SignOut revoga a sessão até o vencimento natural do token.
func (s *Service) SignOut(ctx context.Context, session *authstate.Session) error {
	if session == nil {
		return nil
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl > 0 {
		if err := s.cache.Set(ctx, revokedKeyPrefix+session.ID, 1, ttl); err != nil {
			s.logger.Error("Falha ao revogar sessão.", err)
			return apperror.NewInternalError("Não foi possível encerrar a sessão.", err)
		}
	}

	s.events.Publish(authstate.Event{Kind: authstate.EventSignedOut, Session: session, UserID: session.UserID})
	s.logger.Info("Logout realizado.", map[string]interface{}{"user_id": session.UserID, "session_id": session.ID})
	return nil
}

// GetUserProfile busca o perfil do sujeito da sessão. Sem sessão, ou sem
// perfil, devolve (nil, nil).
func (s *Service) GetUserProfile(ctx context.Context, session *authstate.Session) (*domain.Profile, error) {
	if session == nil {
		return nil, nil
	}
	p, err := s.profiles.FindByID(ctx, session.UserID)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// IsAdmin busca o perfil a cada chamada. Falhas contam como falso.
func (s *Service) IsAdmin(ctx context.Context, session *authstate.Session) bool {
	p, err := s.GetUserProfile(ctx, session)
	return err == nil && p != nil && p.IsAdmin()
}

// IsImobiliaria busca o perfil a cada chamada. Falhas contam como falso.
func (s *Service) IsImobiliaria(ctx context.Context, session *authstate.Session) bool {
	p, err := s.GetUserProfile(ctx, session)
	return err == nil && p != nil && p.IsImobiliaria()
}

// UpdatePassword troca a senha do usuário da sessão e marca senha_alterada.
func (s *Service) UpdatePassword(ctx context.Context, session *authstate.Session, newPassword string) error {
	if session == nil {
		return apperror.NewUnauthorizedError("Sessão ausente.")
	}
	if err := password.Validate(newPassword); err != nil {
		return apperror.NewValidationError(err.Error())
	}

	if err := s.replacePassword(ctx, session.UserID, newPassword, true); err != nil {
		return err
	}

	s.events.Publish(authstate.Event{Kind: authstate.EventUserUpdated, UserID: session.UserID})
	s.logger.Info("Senha alterada.", map[string]interface{}{"user_id": session.UserID})
	return nil
}

// replacePassword grava a nova credencial e depois a flag de senha alterada.
// A flag é regravada com backoff exponencial; se ainda assim falhar, a
// credencial anterior é restaurada e as duas falhas são devolvidas juntas.
func (s *Service) replacePassword(ctx context.Context, userID, plain string, changed bool) error {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if changed && password.Compare(account.PasswordHash, plain) {
		return apperror.NewValidationError("A nova senha deve ser diferente da atual.")
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return apperror.NewInternalError("Falha ao processar a senha.", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	var at *time.Time
	if changed {
		now := s.now()
		at = &now
	}

	backoff := retry.WithMaxRetries(s.opts.FlagRetries, retry.NewExponential(s.opts.FlagBackoff))
	flagErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.profiles.SetPasswordChanged(ctx, userID, changed, at)
		var internal *apperror.InternalError
		if errors.As(err, &internal) {
			return retry.RetryableError(err)
		}
		return err
	})
	if flagErr == nil {
		return nil
	}

	s.logger.Error("Falha ao gravar senha_alterada; restaurando credencial anterior.", flagErr)
	restoreErr := s.accounts.UpdatePasswordHash(ctx, userID, account.PasswordHash)
	if restoreErr != nil {
		s.logger.Error("Falha ao restaurar credencial anterior.", restoreErr)
	}
	return apperror.NewPartialWriteError("Não foi possível concluir a troca de senha.", flagErr, restoreErr)
}

// ResetPassword inicia a redefinição de senha. A resposta é a mesma para
// e-mails cadastrados ou não.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return apperror.NewValidationError("Informe um e-mail válido.")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		var notFound *apperror.NotFoundError
		if !errors.As(err, &notFound) {
			s.logger.Error("Falha ao buscar conta para redefinição.", err)
		}
		return nil
	}

	resetToken := uuid.NewString()
	if err := s.cache.Set(ctx, resetKeyPrefix+resetToken, account.ID, s.opts.PasswordResetTTL); err != nil {
		s.logger.Error("Falha ao gravar token de redefinição.", err)
		return apperror.NewInternalError("Não foi possível iniciar a redefinição de senha.", err)
	}

	link := fmt.Sprintf("%s/redefinir-senha?token=%s", strings.TrimRight(s.opts.AppBaseURL, "/"), resetToken)
	if err := s.mailer.SendPasswordReset(ctx, account.Email, link); err != nil {
		s.logger.Error("Falha ao enviar e-mail de redefinição.", err)
	}
	return nil
}

// ConfirmPasswordReset consome o token de redefinição, grava a nova senha e
// devolve o id do usuário.
func (s *Service) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) (string, error) {
	if err := password.Validate(newPassword); err != nil {
		return "", apperror.NewValidationError(err.Error())
	}

	userID, err := s.cache.GetDel(ctx, resetKeyPrefix+strings.TrimSpace(resetToken))
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", apperror.NewValidationError("Link de redefinição inválido ou expirado.")
	}
	if err != nil {
		return "", apperror.NewInternalError("Não foi possível validar o link de redefinição.", err)
	}

	if err := s.replacePassword(ctx, userID, newPassword, true); err != nil {
		return "", err
	}

	s.events.Publish(authstate.Event{Kind: authstate.EventUserUpdated, UserID: userID})
	s.logger.Info("Senha redefinida por link.", map[string]interface{}{"user_id": userID})
	return userID, nil
}

// SignUpAgency é o cadastro de imobiliária feito pela própria imobiliária.
func (s *Service) SignUpAgency(ctx context.Context, reg domain.AgencyRegistration) (domain.Profile, error) {
	if err := reg.Validate(); err != nil {
		return domain.Profile{}, apperror.NewValidationError(err.Error())
	}
	if err := password.Validate(reg.Password); err != nil {
		return domain.Profile{}, apperror.NewValidationError(err.Error())
	}
	reg.Address = s.autofill(ctx, reg.Address)

	profile, err := s.createAccount(ctx, reg.Email, reg.Password, func(id string, now time.Time) domain.Profile {
		return reg.ToProfile(id, true, now)
	})
	if err != nil {
		return domain.Profile{}, err
	}

	s.logger.Info("Imobiliária cadastrada.", map[string]interface{}{"user_id": profile.ID, "cnpj": profile.Agency.CNPJ})
	return profile, nil
}

// ProvisionAgency cria uma imobiliária com senha provisória (somente admin).
func (s *Service) ProvisionAgency(ctx context.Context, actor authstate.State, reg domain.AgencyRegistration) (domain.Provisioned, error) {
	if !actor.IsAdmin() {
		return domain.Provisioned{}, apperror.NewForbiddenError("Apenas administradores podem cadastrar imobiliárias.")
	}
	if err := reg.Validate(); err != nil {
		return domain.Provisioned{}, apperror.NewValidationError(err.Error())
	}
	reg.Address = s.autofill(ctx, reg.Address)

	temp, err := password.Generate(password.GeneratedLength)
	if err != nil {
		return domain.Provisioned{}, apperror.NewInternalError("Falha ao gerar senha provisória.", err)
	}

	profile, err := s.createAccount(ctx, reg.Email, temp, func(id string, now time.Time) domain.Profile {
		return reg.ToProfile(id, false, now)
	})
	if err != nil {
		return domain.Provisioned{}, err
	}

	s.logger.Info("Imobiliária provisionada.", map[string]interface{}{"user_id": profile.ID, "admin_id": actor.UserID()})
	return domain.Provisioned{Profile: profile, TemporaryPassword: temp}, nil
}

// ProvisionAdmin cria um novo administrador com senha provisória (somente admin).
// Contas existentes não são promovidas.
func (s *Service) ProvisionAdmin(ctx context.Context, actor authstate.State, email, name string) (domain.Provisioned, error) {
	if !actor.IsAdmin() {
		return domain.Provisioned{}, apperror.NewForbiddenError("Apenas administradores podem cadastrar administradores.")
	}

	temp, err := password.Generate(password.GeneratedLength)
	if err != nil {
		return domain.Provisioned{}, apperror.NewInternalError("Falha ao gerar senha provisória.", err)
	}

	profile, err := s.createAdmin(ctx, email, name, temp, false)
	if err != nil {
		return domain.Provisioned{}, err
	}

	s.logger.Info("Administrador provisionado.", map[string]interface{}{"user_id": profile.ID, "admin_id": actor.UserID()})
	return domain.Provisioned{Profile: profile, TemporaryPassword: temp}, nil
}

// BootstrapAdmin cria o primeiro administrador fora de banda (CLI). A senha
// vem do operador e precisa ser trocada no primeiro acesso.
func (s *Service) BootstrapAdmin(ctx context.Context, email, plain, name string) (domain.Profile, error) {
	if err := password.Validate(plain); err != nil {
		return domain.Profile{}, apperror.NewValidationError(err.Error())
	}
	profile, err := s.createAdmin(ctx, email, name, plain, false)
	if err != nil {
		return domain.Profile{}, err
	}
	s.logger.Info("Administrador inicial criado.", map[string]interface{}{"user_id": profile.ID})
	return profile, nil
}

func (s *Service) createAdmin(ctx context.Context, email, name, plain string, changed bool) (domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Profile{}, apperror.NewValidationError("Informe um e-mail válido.")
	}
	if len(name) < 2 {
		return domain.Profile{}, apperror.NewValidationError("Informe o nome do administrador.")
	}

	return s.createAccount(ctx, email, plain, func(id string, now time.Time) domain.Profile {
		p := domain.Profile{
			ID:              id,
			Email:           email,
			Type:            domain.UserTypeAdmin,
			Name:            name,
			PasswordChanged: changed,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if changed {
			p.PasswordChangedAt = &now
		}
		return p
	})
}

// ResetAgencyPassword gera uma nova senha provisória para a imobiliária (somente admin).
func (s *Service) ResetAgencyPassword(ctx context.Context, actor authstate.State, agencyID string) (domain.Provisioned, error) {
	if !actor.IsAdmin() {
		return domain.Provisioned{}, apperror.NewForbiddenError("Apenas administradores podem redefinir senhas.")
	}

	profile, err := s.profiles.FindByID(ctx, agencyID)
	if err != nil {
		return domain.Provisioned{}, err
	}
	if !profile.IsImobiliaria() {
		return domain.Provisioned{}, apperror.NewNotFoundError(fmt.Sprintf("Imobiliária '%s' não encontrada", agencyID))
	}

	temp, err := password.Generate(password.GeneratedLength)
	if err != nil {
		return domain.Provisioned{}, apperror.NewInternalError("Falha ao gerar senha provisória.", err)
	}
	if err := s.replacePassword(ctx, agencyID, temp, false); err != nil {
		return domain.Provisioned{}, err
	}

	profile.PasswordChanged = false
	profile.PasswordChangedAt = nil
	s.events.Publish(authstate.Event{Kind: authstate.EventUserUpdated, UserID: agencyID})
	s.logger.Info("Senha de imobiliária redefinida pelo admin.", map[string]interface{}{"user_id": agencyID, "admin_id": actor.UserID()})
	return domain.Provisioned{Profile: profile, TemporaryPassword: temp}, nil
}

// createAccount cria a credencial e depois o perfil. Se o perfil falhar, a
// credencial é removida; só quando a remoção também falha o erro é parcial.
func (s *Service) createAccount(ctx context.Context, email, plain string, build func(id string, now time.Time) domain.Profile) (domain.Profile, error) {
	hash, err := password.Hash(plain)
	if err != nil {
		return domain.Profile{}, apperror.NewInternalError("Falha ao processar a senha.", err)
	}

	now := s.now()
	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Profile{}, err
	}

	profile := build(account.ID, now)
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		s.logger.Error("Falha ao gravar perfil; removendo conta recém-criada.", err)
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			s.logger.Error("Falha ao remover conta órfã.", delErr)
			return domain.Profile{}, apperror.NewPartialWriteError("Conta criada sem perfil.", err, delErr)
		}
		return domain.Profile{}, err
	}
	return profile, nil
}

// autofill completa o endereço pelo CEP quando faltam rua, cidade ou estado.
// Falhas na consulta mantêm o endereço como informado.
func (s *Service) autofill(ctx context.Context, addr domain.Address) domain.Address {
	if s.postal == nil || !addr.NeedsAutofill() {
		return addr
	}
	lookup, err := s.postal.LookupCEP(ctx, addr.CEP)
	if err != nil {
		s.logger.Warn("Consulta de CEP falhou; endereço mantido.", map[string]interface{}{"cep": addr.CEP, "error": err.Error()})
		return addr
	}
	return addr.Autofill(lookup)
}
