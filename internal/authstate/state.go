package authstate

import (
	"time"

	"s8garante/internal/domain"
)

// Session é uma sessão emitida pelo armazenamento de sessões.
// ID é o identificador da sessão (jti do token); UserID é o sujeito.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired informa se a sessão já venceu em now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Phase é a fase do estado de autenticação.
type Phase int

const (
	// PhaseLoading: a sessão existe mas o perfil ainda está sendo buscado.
	PhaseLoading Phase = iota
	// PhaseAnonymous: nenhuma sessão válida.
	PhaseAnonymous
	// PhaseDegraded: sessão válida sem perfil legível (ausente ou malformado).
	PhaseDegraded
	// PhaseAuthenticated: sessão e perfil carregados.
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseDegraded:
		return "degraded"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State é o estado de autenticação visto por guards e handlers.
// Session é nil em PhaseAnonymous; Profile só é não-nil em PhaseAuthenticated.
type State struct {
	Phase   Phase
	Session *Session
	Profile *domain.Profile
}

func Anonymous() State { return State{Phase: PhaseAnonymous} }

func Loading(s *Session) State { return State{Phase: PhaseLoading, Session: s} }

func Degraded(s *Session) State { return State{Phase: PhaseDegraded, Session: s} }

func Authenticated(s *Session, p *domain.Profile) State {
	return State{Phase: PhaseAuthenticated, Session: s, Profile: p}
}

// IsAuthenticated informa se há sessão e perfil carregados.
func (s State) IsAuthenticated() bool {
	return s.Phase == PhaseAuthenticated && s.Session != nil && s.Profile != nil
}

// IsAdmin é falso em qualquer fase que não seja PhaseAuthenticated.
func (s State) IsAdmin() bool {
	return s.IsAuthenticated() && s.Profile.IsAdmin()
}

// IsImobiliaria é falso em qualquer fase que não seja PhaseAuthenticated.
func (s State) IsImobiliaria() bool {
	return s.IsAuthenticated() && s.Profile.IsImobiliaria()
}

// PasswordChanged informa o valor de senha_alterada; falso sem perfil.
func (s State) PasswordChanged() bool {
	return s.IsAuthenticated() && s.Profile.PasswordChanged
}

// UserID devolve o sujeito da sessão ou "".
func (s State) UserID() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.UserID
}

// Snapshot é a forma JSON do estado devolvida por GET /v1/auth/sessao.
type Snapshot struct {
	Phase   string          `json:"fase"`
	UserID  string          `json:"user_id,omitempty"`
	Email   string          `json:"email,omitempty"`
	Profile *domain.Profile `json:"perfil,omitempty"`
}

// Snapshot devolve a visão serializável do estado.
func (s State) Snapshot() Snapshot {
	snap := Snapshot{Phase: s.Phase.String()}
	if s.Session != nil {
		snap.UserID = s.Session.UserID
		snap.Email = s.Session.Email
	}
	if s.IsAuthenticated() {
		snap.Profile = s.Profile
	}
	return snap
}
