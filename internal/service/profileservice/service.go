package profileservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/format"
	"s8garante/internal/pkg/logger"
)

// ProfileRepository define o contrato de perfis usado pelo serviço.
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (domain.Profile, error)
	ListByType(ctx context.Context, userType domain.UserType) ([]domain.Profile, error)
	Update(ctx context.Context, p domain.Profile) error
}

// Refresher relê o perfil de uma sessão depois de uma escrita direta.
type Refresher interface {
	RefreshProfile(ctx context.Context, sessionID string) authstate.State
}

// Publisher publica eventos de autenticação.
type Publisher interface {
	Publish(ev authstate.Event)
}

// PostalLookup consulta um CEP para preencher o endereço.
type PostalLookup interface {
	LookupCEP(ctx context.Context, cep string) (domain.PostalLookup, error)
}

// Service gerencia perfis próprios, imobiliárias e administradores.
type Service struct {
	repo      ProfileRepository
	refresher Refresher
	events    Publisher
	postal    PostalLookup
	logger    logger.Logger
	now       func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Perfis. postal pode ser nil.
func NewService(repo ProfileRepository, refresher Refresher, events Publisher, postal PostalLookup, logger logger.Logger) *Service {
	return &Service{repo: repo, refresher: refresher, events: events, postal: postal, logger: logger, now: time.Now}
}

// GetOwnProfile devolve o perfil atual do usuário autenticado.
func (s *Service) GetOwnProfile(ctx context.Context, actor authstate.State) (domain.Profile, error) {
	if !actor.IsAuthenticated() {
		return domain.Profile{}, apperror.NewUnauthorizedError("Sessão ausente.")
	}
	return s.repo.FindByID(ctx, actor.UserID())
}

// UpdateOwnProfile grava os dados editáveis do próprio perfil e atualiza o
// estado da sessão. Admins editam apenas nome e telefone.
func (s *Service) UpdateOwnProfile(ctx context.Context, actor authstate.State, upd domain.ProfileUpdate) (domain.Profile, error) {
	if !actor.IsAuthenticated() {
		return domain.Profile{}, apperror.NewUnauthorizedError("Sessão ausente.")
	}

	updated, err := s.apply(ctx, actor.UserID(), upd)
	if err != nil {
		return domain.Profile{}, err
	}

	s.refresher.RefreshProfile(ctx, actor.Session.ID)
	s.logger.Info("Perfil atualizado pelo próprio usuário.", map[string]interface{}{"user_id": updated.ID})
	return updated, nil
}

// ListAgencies lista as imobiliárias (somente admin).
func (s *Service) ListAgencies(ctx context.Context, actor authstate.State) ([]domain.Profile, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Apenas administradores podem listar imobiliárias.")
	}
	return s.repo.ListByType(ctx, domain.UserTypeImobiliaria)
}

// ListAdmins lista os administradores (somente admin).
func (s *Service) ListAdmins(ctx context.Context, actor authstate.State) ([]domain.Profile, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Apenas administradores podem listar administradores.")
	}
	return s.repo.ListByType(ctx, domain.UserTypeAdmin)
}

// GetAgency busca uma imobiliária (somente admin).
func (s *Service) GetAgency(ctx context.Context, actor authstate.State, id string) (domain.Profile, error) {
	if !actor.IsAdmin() {
		return domain.Profile{}, apperror.NewForbiddenError("Apenas administradores podem consultar imobiliárias.")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	if !p.IsImobiliaria() {
		return domain.Profile{}, apperror.NewNotFoundError(fmt.Sprintf("Imobiliária '%s' não encontrada", id))
	}
	return p, nil
}

// UpdateAgency grava os dados de uma imobiliária (somente admin) e avisa as
// sessões abertas dela.
func (s *Service) UpdateAgency(ctx context.Context, actor authstate.State, id string, upd domain.ProfileUpdate) (domain.Profile, error) {
	if _, err := s.GetAgency(ctx, actor, id); err != nil {
		return domain.Profile{}, err
	}

	updated, err := s.apply(ctx, id, upd)
	if err != nil {
		return domain.Profile{}, err
	}

	s.events.Publish(authstate.Event{Kind: authstate.EventUserUpdated, UserID: id})
	s.logger.Info("Imobiliária atualizada pelo admin.", map[string]interface{}{"user_id": id, "admin_id": actor.UserID()})
	return updated, nil
}

func (s *Service) apply(ctx context.Context, id string, upd domain.ProfileUpdate) (domain.Profile, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}

	if len(strings.TrimSpace(upd.Name)) < 2 {
		return domain.Profile{}, apperror.NewValidationError("Nome do responsável é obrigatório.")
	}
	if current.IsImobiliaria() {
		if len(strings.TrimSpace(upd.CompanyName)) < 2 {
			return domain.Profile{}, apperror.NewValidationError("Nome da empresa é obrigatório.")
		}
		upd.CNPJ = format.Digits(upd.CNPJ)
		if len(upd.CNPJ) != 14 {
			return domain.Profile{}, apperror.NewValidationError("CNPJ deve ter 14 dígitos.")
		}
		if upd.Address != nil {
			addr := s.autofill(ctx, *upd.Address)
			upd.Address = &addr
		}
	}

	updated := upd.ApplyTo(current)
	updated.UpdatedAt = s.now()
	if err := updated.Validate(); err != nil {
		return domain.Profile{}, apperror.NewValidationError(err.Error())
	}
	if err := s.repo.Update(ctx, updated); err != nil {
		return domain.Profile{}, err
	}
	return updated, nil
}

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
