package analysisservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

// AnalysisRepository define o contrato que o Serviço de Análises espera da camada de Persistência.
type AnalysisRepository interface {
	Create(ctx context.Context, a domain.Analysis) (domain.Analysis, error)
	FindByID(ctx context.Context, id string) (domain.Analysis, error)
	List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.Analysis, error)
	Decide(ctx context.Context, d domain.Decision) (domain.Analysis, error)
}

// DecisionNotifier é avisado depois que uma decisão é gravada.
type DecisionNotifier interface {
	AnalysisDecided(ctx context.Context, a domain.Analysis)
}

// Service implementa o fluxo de análises de locatário.
type Service struct {
	repo     AnalysisRepository
	notifier DecisionNotifier
	logger   logger.Logger
	now      func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Análises.
func NewService(repo AnalysisRepository, notifier DecisionNotifier, logger logger.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// Create registra uma nova análise da imobiliária autenticada, em Aguardando.
func (s *Service) Create(ctx context.Context, actor authstate.State, req domain.AnalysisRequest) (domain.Analysis, error) {
	if !actor.IsImobiliaria() {
		return domain.Analysis{}, apperror.NewForbiddenError("Apenas imobiliárias podem enviar análises.")
	}
	if err := req.Validate(); err != nil {
		return domain.Analysis{}, apperror.NewValidationError(err.Error())
	}

	a := req.NewAnalysis(uuid.NewString(), actor.UserID(), s.now())
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		s.logger.Error("Falha ao criar análise no repositório.", err)
		return domain.Analysis{}, err
	}
	return created, nil
}

// Get devolve a análise se o ator for admin ou a imobiliária dona.
// Para imobiliárias, análises de terceiros aparecem como inexistentes.
func (s *Service) Get(ctx context.Context, actor authstate.State, id string) (domain.Analysis, error) {
	if !actor.IsAdmin() && !actor.IsImobiliaria() {
		return domain.Analysis{}, apperror.NewForbiddenError("Acesso negado.")
	}

	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Analysis{}, err
	}
	if actor.IsImobiliaria() && a.AgencyID != actor.UserID() {
		s.logger.Warn("Imobiliária tentou acessar análise de outra imobiliária.", map[string]interface{}{
			"analise_id": id, "user_id": actor.UserID(),
		})
		return domain.Analysis{}, apperror.NewNotFoundError(fmt.Sprintf("Análise '%s' não encontrada", id))
	}
	return a, nil
}

// List devolve as análises visíveis para o ator. Imobiliárias veem só as
// próprias (o filtro de imobiliária é ignorado); admins veem todas.
func (s *Service) List(ctx context.Context, actor authstate.State, filter domain.AnalysisFilter) ([]domain.Analysis, error) {
	switch {
	case actor.IsAdmin():
	case actor.IsImobiliaria():
		filter.AgencyID = actor.UserID()
	default:
		return nil, apperror.NewForbiddenError("Acesso negado.")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidationError("Status deve ser Aguardando, Aprovado ou Rejeitado.")
	}
	return s.repo.List(ctx, filter)
}

// ListByAgency lista as análises de uma imobiliária (detalhe da imobiliária no admin).
func (s *Service) ListByAgency(ctx context.Context, actor authstate.State, agencyID string) ([]domain.Analysis, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Apenas administradores podem listar análises de outra imobiliária.")
	}
	return s.repo.List(ctx, domain.AnalysisFilter{AgencyID: agencyID})
}

// Decide aprova ou rejeita uma análise em Aguardando.
func (s *Service) Decide(ctx context.Context, actor authstate.State, id string, target domain.AnalysisStatus, note string) (domain.Analysis, error) {
	s.logger.Debug("Iniciando decisão de análise no serviço.", map[string]interface{}{
		"analise_id": id,
		"status":     target,
	})

	if !actor.IsAdmin() {
		return domain.Analysis{}, apperror.NewForbiddenError("Apenas administradores podem decidir análises.")
	}
	// O repositório só grava se a análise ainda estiver em Aguardando.
	if !domain.CanTransition(domain.StatusAguardando, target) {
		return domain.Analysis{}, apperror.NewValidationError("A decisão deve ser Aprovado ou Rejeitado.")
	}

	d := domain.Decision{
		AnalysisID: id,
		Status:     target,
		AdminID:    actor.UserID(),
		DecidedAt:  s.now(),
	}
	if strings.TrimSpace(note) != "" {
		d.Note = &note
	}

	decided, err := s.repo.Decide(ctx, d)
	if err != nil {
		return domain.Analysis{}, err
	}

	s.logger.Info("Análise decidida.", map[string]interface{}{
		"analise_id":    decided.ID,
		"status":        decided.Status,
		"admin_decisao": d.AdminID,
	})
	s.notifier.AnalysisDecided(ctx, decided)
	return decided, nil
}

// LogNotifier registra a decisão no log. O envio de e-mail à imobiliária não é feito.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) AnalysisDecided(_ context.Context, a domain.Analysis) {
	n.logger.Info("Notificação de decisão registrada.", map[string]interface{}{
		"analise_id":     a.ID,
		"imobiliaria_id": a.AgencyID,
		"status":         a.Status,
	})
}
