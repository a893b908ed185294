package domain

import (
	"fmt"
	"strings"
	"time"

	"s8garante/internal/pkg/format"
)

// AnalysisStatus é o estado de uma análise de locatário.
type AnalysisStatus string

const (
	StatusAguardando AnalysisStatus = "Aguardando"
	StatusAprovado   AnalysisStatus = "Aprovado"
	StatusRejeitado  AnalysisStatus = "Rejeitado"
)

// Valid informa se o status é conhecido.
func (s AnalysisStatus) Valid() bool {
	return s == StatusAguardando || s == StatusAprovado || s == StatusRejeitado
}

// Terminal informa se o status encerra a análise (Aprovado ou Rejeitado).
func (s AnalysisStatus) Terminal() bool {
	return s == StatusAprovado || s == StatusRejeitado
}

// CanTransition implementa a máquina de estados Aguardando -> {Aprovado, Rejeitado}.
func CanTransition(from, to AnalysisStatus) bool {
	return from == StatusAguardando && to.Terminal()
}

// Plan é a faixa de serviço contratada para a análise.
type Plan string

const (
	PlanBronze Plan = "Bronze"
	PlanPrata  Plan = "Prata"
	PlanOuro   Plan = "Ouro"
)

// Plans lista as faixas na ordem de exibição.
var Plans = []Plan{PlanBronze, PlanPrata, PlanOuro}

// Valid informa se o plano é conhecido.
func (p Plan) Valid() bool {
	return p == PlanBronze || p == PlanPrata || p == PlanOuro
}

// Analysis é uma solicitação de análise de locatário enviada por uma imobiliária.
type Analysis struct {
	ID             string         `json:"id"`
	AgencyID       string         `json:"imobiliaria_id"`
	TenantName     string         `json:"nome_locatario"`
	TenantCPF      string         `json:"cpf_locatario"`
	TenantEmail    string         `json:"email_locatario,omitempty"`
	TenantPhone    string         `json:"telefone_locatario,omitempty"`
	DeclaredIncome *float64       `json:"renda_comprovada,omitempty"`
	Plan           Plan           `json:"plano"`
	Status         AnalysisStatus `json:"status"`
	SubmittedAt    time.Time      `json:"data_envio"`
	DecidedAt      *time.Time     `json:"data_decisao"`
	DecidedBy      *string        `json:"admin_decisao"`
	Notes          *string        `json:"observacoes"`
}

// AnalysisRequest é o payload do formulário de nova análise.
type AnalysisRequest struct {
	TenantName     string   `json:"nome_locatario"`
	TenantCPF      string   `json:"cpf_locatario"`
	TenantEmail    string   `json:"email_locatario"`
	TenantPhone    string   `json:"telefone_locatario"`
	DeclaredIncome *float64 `json:"renda_comprovada"`
	Plan           Plan     `json:"plano"`
}

// Validate checa os campos obrigatórios do formulário.
func (r AnalysisRequest) Validate() error {
	if len(strings.TrimSpace(r.TenantName)) < 3 {
		return fmt.Errorf("nome do locatário é obrigatório")
	}
	if len(format.Digits(r.TenantCPF)) != 11 {
		return fmt.Errorf("CPF do locatário deve ter 11 dígitos")
	}
	if r.TenantEmail != "" && !strings.Contains(r.TenantEmail, "@") {
		return fmt.Errorf("e-mail do locatário inválido")
	}
	if r.DeclaredIncome != nil && *r.DeclaredIncome < 0 {
		return fmt.Errorf("renda comprovada não pode ser negativa")
	}
	if !r.Plan.Valid() {
		return fmt.Errorf("plano deve ser Bronze, Prata ou Ouro")
	}
	return nil
}

// NewAnalysis cria a análise em Aguardando, sem dados de decisão.
func (r AnalysisRequest) NewAnalysis(id, agencyID string, now time.Time) Analysis {
	return Analysis{
		ID:             id,
		AgencyID:       agencyID,
		TenantName:     strings.TrimSpace(r.TenantName),
		TenantCPF:      format.Digits(r.TenantCPF),
		TenantEmail:    strings.TrimSpace(r.TenantEmail),
		TenantPhone:    strings.TrimSpace(r.TenantPhone),
		DeclaredIncome: r.DeclaredIncome,
		Plan:           r.Plan,
		Status:         StatusAguardando,
		SubmittedAt:    now,
	}
}

// Decision é a transição aplicada por um admin.
type Decision struct {
	AnalysisID string
	Status     AnalysisStatus
	AdminID    string
	Note       *string
	DecidedAt  time.Time
}

// AnalysisFilter restringe a listagem de análises.
type AnalysisFilter struct {
	AgencyID string
	Status   AnalysisStatus
	Limit    int
}
