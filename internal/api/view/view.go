// Package view monta as respostas da API: o registro de domínio mais os
// campos *_formatado exibidos pelas telas (CNPJ, CPF, moeda e datas).
package view

import (
	"s8garante/internal/domain"
	"s8garante/internal/pkg/format"
)

// Analysis é a análise como devolvida pela API.
// @Description Análise de locatário com campos formatados para exibição.
type Analysis struct {
	domain.Analysis
	CPFFormatted         string `json:"cpf_formatado"`
	PhoneFormatted       string `json:"telefone_formatado,omitempty"`
	IncomeFormatted      string `json:"renda_formatada,omitempty"`
	SubmittedAtFormatted string `json:"data_envio_formatada"`
	DecidedAtFormatted   string `json:"data_decisao_formatada,omitempty"`
}

func NewAnalysis(a domain.Analysis) Analysis {
	v := Analysis{
		Analysis:             a,
		CPFFormatted:         format.CPF(a.TenantCPF),
		SubmittedAtFormatted: format.DateTime(a.SubmittedAt),
	}
	if a.TenantPhone != "" {
		v.PhoneFormatted = format.Phone(a.TenantPhone)
	}
	if a.DeclaredIncome != nil {
		v.IncomeFormatted = format.Currency(*a.DeclaredIncome)
	}
	if a.DecidedAt != nil {
		v.DecidedAtFormatted = format.DateTime(*a.DecidedAt)
	}
	return v
}

func NewAnalyses(list []domain.Analysis) []Analysis {
	out := make([]Analysis, 0, len(list))
	for _, a := range list {
		out = append(out, NewAnalysis(a))
	}
	return out
}

// Profile é o perfil como devolvido pela API.
type Profile struct {
	domain.Profile
	PhoneFormatted string `json:"telefone_formatado,omitempty"`
	CNPJFormatted  string `json:"cnpj_formatado,omitempty"`
	CEPFormatted   string `json:"cep_formatado,omitempty"`
	Status         string `json:"status"`
}

func NewProfile(p domain.Profile) Profile {
	v := Profile{Profile: p, Status: "Pendente"}
	if p.PasswordChanged {
		v.Status = "Ativa"
	}
	if p.Phone != "" {
		v.PhoneFormatted = format.Phone(p.Phone)
	}
	if p.Agency != nil {
		v.CNPJFormatted = format.CNPJ(p.Agency.CNPJ)
		if p.Agency.Address.CEP != "" {
			v.CEPFormatted = format.CEP(p.Agency.Address.CEP)
		}
	}
	return v
}

func NewProfiles(list []domain.Profile) []Profile {
	out := make([]Profile, 0, len(list))
	for _, p := range list {
		out = append(out, NewProfile(p))
	}
	return out
}

// Document é o metadado do anexo como devolvido pela API.
type Document struct {
	domain.Document
	UploadedAtFormatted string `json:"data_upload_formatada"`
}

func NewDocuments(list []domain.Document) []Document {
	out := make([]Document, 0, len(list))
	for _, d := range list {
		out = append(out, NewDocument(d))
	}
	return out
}

func NewDocument(d domain.Document) Document {
	return Document{Document: d, UploadedAtFormatted: format.DateTime(d.UploadedAt)}
}

// Provisioned devolve a senha provisória junto do perfil criado.
type Provisioned struct {
	Profile           Profile `json:"perfil"`
	TemporaryPassword string  `json:"senha_provisoria"`
}

func NewProvisioned(p domain.Provisioned) Provisioned {
	return Provisioned{Profile: NewProfile(p.Profile), TemporaryPassword: p.TemporaryPassword}
}
