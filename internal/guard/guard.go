package guard

import (
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
)

// Rotas de destino dos redirecionamentos.
const (
	SignInRoute         = "/login"
	PasswordChangeRoute = "/alterar-senha"
	AdminHome           = "/admin"
	AgencyHome          = "/imobiliaria"
)

// Requirement descreve o que uma rota exige.
// Role vazio aceita qualquer papel autenticado.
type Requirement struct {
	Role domain.UserType
	// PasswordChange marca a rota de troca de senha obrigatória.
	PasswordChange bool
}

var (
	RequireAdmin       = Requirement{Role: domain.UserTypeAdmin}
	RequireImobiliaria = Requirement{Role: domain.UserTypeImobiliaria}
	RequireAnyRole     = Requirement{}
	RequirePassword    = Requirement{PasswordChange: true}
)

// Outcome é o resultado da avaliação.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeWait
	OutcomeRedirectSignIn
	OutcomeRedirectPasswordChange
	OutcomeRedirectHome
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeWait:
		return "wait"
	case OutcomeRedirectSignIn:
		return "redirect_sign_in"
	case OutcomeRedirectPasswordChange:
		return "redirect_password_change"
	case OutcomeRedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Decision é o resultado de Evaluate; Redirect vem preenchido nos redirecionamentos.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Allowed informa se a rota pode ser servida.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Evaluate decide o acesso a uma rota a partir do estado de autenticação.
// Papel errado redireciona para o login, nunca para uma página de acesso negado.
func Evaluate(state authstate.State, req Requirement) Decision {
	switch state.Phase {
	case authstate.PhaseLoading:
		return Decision{Outcome: OutcomeWait}
	case authstate.PhaseAuthenticated:
	default:
		return Decision{Outcome: OutcomeRedirectSignIn, Redirect: SignInRoute}
	}
	if !state.IsAuthenticated() {
		return Decision{Outcome: OutcomeRedirectSignIn, Redirect: SignInRoute}
	}

	if req.Role != "" && state.Profile.Type != req.Role {
		return Decision{Outcome: OutcomeRedirectSignIn, Redirect: SignInRoute}
	}

	if req.PasswordChange {
		if state.PasswordChanged() {
			return Decision{Outcome: OutcomeRedirectHome, Redirect: Home(state.Profile.Type)}
		}
		return Decision{Outcome: OutcomeAllow}
	}

	if !state.PasswordChanged() {
		return Decision{Outcome: OutcomeRedirectPasswordChange, Redirect: PasswordChangeRoute}
	}
	return Decision{Outcome: OutcomeAllow}
}

// Home devolve a página inicial do papel.
func Home(t domain.UserType) string {
	if t == domain.UserTypeAdmin {
		return AdminHome
	}
	return AgencyHome
}
