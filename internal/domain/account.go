package domain

import "time"

// Account é a credencial mantida pelo armazenamento de sessões (tabela auth_users).
// O perfil (Profile) com o mesmo ID guarda o papel e os demais dados.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Oculta o hash da senha no JSON de resposta
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credentials é o payload de login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Provisioned é devolvido quando um admin cria uma conta: a senha provisória
// aparece uma única vez e deve ser entregue fora do sistema.
type Provisioned struct {
	Profile           Profile `json:"perfil"`
	TemporaryPassword string  `json:"senha_provisoria"`
}
