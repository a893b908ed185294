package dashboardservice

import (
	"context"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/format"
	"s8garante/internal/pkg/logger"
)

// RecentLimit é a quantidade de análises recentes exibidas nos painéis.
const RecentLimit = 5

type AnalysisLister interface {
	List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.Analysis, error)
}

type ProfileLister interface {
	ListByType(ctx context.Context, userType domain.UserType) ([]domain.Profile, error)
}

// Service monta os painéis a partir das linhas lidas do banco.
type Service struct {
	analyses AnalysisLister
	profiles ProfileLister
	logger   logger.Logger
}

func NewService(analyses AnalysisLister, profiles ProfileLister, logger logger.Logger) *Service {
	return &Service{analyses: analyses, profiles: profiles, logger: logger}
}

// Admin devolve o painel geral do administrador.
func (s *Service) Admin(ctx context.Context, actor authstate.State) (domain.AdminDashboard, error) {
	if !actor.IsAdmin() {
		return domain.AdminDashboard{}, apperror.NewForbiddenError("Apenas administradores.")
	}

	analyses, err := s.analyses.List(ctx, domain.AnalysisFilter{})
	if err != nil {
		return domain.AdminDashboard{}, err
	}
	agencies, err := s.profiles.ListByType(ctx, domain.UserTypeImobiliaria)
	if err != nil {
		return domain.AdminDashboard{}, err
	}

	d := domain.AdminDashboard{
		Analyses: Count(analyses),
		ByPlan:   ByPlan(analyses),
		Agencies: len(agencies),
		Recent:   recent(analyses),
	}
	for _, a := range agencies {
		if a.PasswordChanged {
			d.ActiveAgencies++
		} else {
			d.PendingAgencies++
		}
	}
	return d, nil
}

// Agency devolve o painel da imobiliária autenticada.
func (s *Service) Agency(ctx context.Context, actor authstate.State) (domain.AgencyDashboard, error) {
	if !actor.IsImobiliaria() {
		return domain.AgencyDashboard{}, apperror.NewForbiddenError("Apenas imobiliárias.")
	}

	analyses, err := s.analyses.List(ctx, domain.AnalysisFilter{AgencyID: actor.UserID()})
	if err != nil {
		return domain.AgencyDashboard{}, err
	}
	return domain.AgencyDashboard{
		Analyses: Count(analyses),
		ByPlan:   ByPlan(analyses),
		Recent:   recent(analyses),
	}, nil
}

// Count agrega as análises por status com percentuais inteiros.
func Count(analyses []domain.Analysis) domain.StatusCounts {
	c := domain.StatusCounts{Total: len(analyses)}
	for _, a := range analyses {
		switch a.Status {
		case domain.StatusAguardando:
			c.Aguardando++
		case domain.StatusAprovado:
			c.Aprovado++
		case domain.StatusRejeitado:
			c.Rejeitado++
		}
	}
	c.PctAguardando = format.Percent(c.Aguardando, c.Total)
	c.PctAprovado = format.Percent(c.Aprovado, c.Total)
	c.PctRejeitado = format.Percent(c.Rejeitado, c.Total)
	return c
}

// ByPlan conta as análises por plano; todos os planos aparecem, mesmo zerados.
func ByPlan(analyses []domain.Analysis) map[domain.Plan]int {
	out := make(map[domain.Plan]int, len(domain.Plans))
	for _, p := range domain.Plans {
		out[p] = 0
	}
	for _, a := range analyses {
		if a.Plan.Valid() {
			out[a.Plan]++
		}
	}
	return out
}

// recent assume a lista já ordenada por data_envio decrescente.
func recent(analyses []domain.Analysis) []domain.Analysis {
	if len(analyses) > RecentLimit {
		return analyses[:RecentLimit]
	}
	return analyses
}
