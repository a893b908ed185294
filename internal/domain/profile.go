package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"s8garante/internal/pkg/format"
)

// UserType é o discriminador do perfil (coluna tipo_usuario).
type UserType string

const (
	UserTypeAdmin       UserType = "admin"
	UserTypeImobiliaria UserType = "imobiliaria"
)

// Valid informa se o discriminador é conhecido.
func (t UserType) Valid() bool {
	return t == UserTypeAdmin || t == UserTypeImobiliaria
}

// ErrMalformedProfile é retornado quando uma linha de perfil lida do banco não
// respeita o formato esperado para o seu discriminador.
var ErrMalformedProfile = errors.New("perfil malformado")

// Profile é o registro de conta ligado ao sujeito da sessão.
// É uma união marcada por Type: perfis de imobiliária carregam Agency,
// perfis de admin não.
type Profile struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Type              UserType   `json:"tipo_usuario"`
	Name              string     `json:"nome_responsavel"`
	Phone             string     `json:"telefone,omitempty"`
	PasswordChanged   bool       `json:"senha_alterada"`
	PasswordChangedAt *time.Time `json:"data_alteracao_senha,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Agency *AgencyData `json:"imobiliaria,omitempty"`
}

// AgencyData são os atributos exclusivos de perfis do tipo imobiliaria.
type AgencyData struct {
	CompanyName string  `json:"nome_empresa"`
	CNPJ        string  `json:"cnpj"`
	Address     Address `json:"endereco"`
}

// IsAdmin informa se o perfil é de administrador.
func (p Profile) IsAdmin() bool { return p.Type == UserTypeAdmin }

// IsImobiliaria informa se o perfil é de imobiliária.
func (p Profile) IsImobiliaria() bool { return p.Type == UserTypeImobiliaria }

// Validate checa o perfil contra o formato do seu discriminador.
func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id ausente", ErrMalformedProfile)
	}
	switch p.Type {
	case UserTypeAdmin:
		if p.Agency != nil {
			return fmt.Errorf("%w: admin com dados de imobiliária", ErrMalformedProfile)
		}
	case UserTypeImobiliaria:
		if p.Agency == nil || strings.TrimSpace(p.Agency.CompanyName) == "" || strings.TrimSpace(p.Agency.CNPJ) == "" {
			return fmt.Errorf("%w: imobiliária sem nome da empresa ou CNPJ", ErrMalformedProfile)
		}
	default:
		return fmt.Errorf("%w: tipo_usuario desconhecido %q", ErrMalformedProfile, p.Type)
	}
	return nil
}

// ProfileUpdate são os campos que o próprio usuário (ou um admin, no caso de
// imobiliárias) pode alterar. O discriminador nunca faz parte da atualização.
type ProfileUpdate struct {
	Name        string   `json:"nome_responsavel"`
	Phone       string   `json:"telefone"`
	CompanyName string   `json:"nome_empresa,omitempty"`
	CNPJ        string   `json:"cnpj,omitempty"`
	Address     *Address `json:"endereco,omitempty"`
}

// ApplyTo devolve uma cópia do perfil com a atualização aplicada.
// Campos de imobiliária são ignorados em perfis de admin.
func (u ProfileUpdate) ApplyTo(p Profile) Profile {
	p.Name = strings.TrimSpace(u.Name)
	p.Phone = strings.TrimSpace(u.Phone)
	if p.IsImobiliaria() && p.Agency != nil {
		agency := *p.Agency
		agency.CompanyName = strings.TrimSpace(u.CompanyName)
		agency.CNPJ = strings.TrimSpace(u.CNPJ)
		if u.Address != nil {
			agency.Address = *u.Address
		}
		p.Agency = &agency
	}
	return p
}

// AgencyRegistration é o payload do cadastro de imobiliária (autosserviço ou pelo admin).
type AgencyRegistration struct {
	Email       string  `json:"email"`
	Password    string  `json:"password,omitempty"`
	Name        string  `json:"nome_responsavel"`
	Phone       string  `json:"telefone"`
	CompanyName string  `json:"nome_empresa"`
	CNPJ        string  `json:"cnpj"`
	Address     Address `json:"endereco"`
}

// Validate checa os campos obrigatórios do cadastro (a senha é validada à parte).
func (r AgencyRegistration) Validate() error {
	missing := []string{}
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		missing = append(missing, "email")
	}
	if len(strings.TrimSpace(r.Name)) < 2 {
		missing = append(missing, "nome_responsavel")
	}
	if len(strings.TrimSpace(r.CompanyName)) < 2 {
		missing = append(missing, "nome_empresa")
	}
	if len(format.Digits(r.CNPJ)) != 14 {
		missing = append(missing, "cnpj")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "telefone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("campos obrigatórios ausentes ou inválidos: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ToProfile monta o perfil de imobiliária para o ID da conta recém-criada.
func (r AgencyRegistration) ToProfile(id string, passwordChanged bool, now time.Time) Profile {
	p := Profile{
		ID:              id,
		Email:           strings.ToLower(strings.TrimSpace(r.Email)),
		Type:            UserTypeImobiliaria,
		Name:            strings.TrimSpace(r.Name),
		Phone:           strings.TrimSpace(r.Phone),
		PasswordChanged: passwordChanged,
		CreatedAt:       now,
		UpdatedAt:       now,
		Agency: &AgencyData{
			CompanyName: strings.TrimSpace(r.CompanyName),
			CNPJ:        format.Digits(r.CNPJ),
			Address:     r.Address,
		},
	}
	if passwordChanged {
		p.PasswordChangedAt = &now
	}
	return p
}
