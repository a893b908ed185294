package profilerepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

const profileColumns = `id, email, tipo_usuario, nome_responsavel, telefone, nome_empresa, cnpj,
        cep, estado, cidade, rua, numero, complemento, bairro,
        senha_alterada, data_alteracao_senha, created_at, updated_at`

// ProfileRepository acessa a tabela profiles.
type ProfileRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewProfileRepository cria e retorna uma nova instância do repositório de perfis.
func NewProfileRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *ProfileRepository {
	return &ProfileRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProfile lê uma linha e valida o perfil contra o seu discriminador.
// Linhas malformadas são rejeitadas aqui e nunca chegam aos serviços.
func scanProfile(row rowScanner) (domain.Profile, error) {
	var (
		p                                                        domain.Profile
		phone, company, cnpj                                     sql.NullString
		cep, state, city, street, number, complement, neighborhd sql.NullString
	)

	if err := row.Scan(
		&p.ID, &p.Email, &p.Type, &p.Name, &phone, &company, &cnpj,
		&cep, &state, &city, &street, &number, &complement, &neighborhd,
		&p.PasswordChanged, &p.PasswordChangedAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return domain.Profile{}, err
	}

	p.Phone = phone.String
	if p.Type == domain.UserTypeImobiliaria {
		p.Agency = &domain.AgencyData{
			CompanyName: company.String,
			CNPJ:        cnpj.String,
			Address: domain.Address{
				CEP:          cep.String,
				State:        state.String,
				City:         city.String,
				Street:       street.String,
				Number:       number.String,
				Complement:   complement.String,
				Neighborhood: neighborhd.String,
			},
		}
	}

	if err := p.Validate(); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// agencyArgs devolve os valores das colunas de imobiliária (NULL para admins).
func agencyArgs(p domain.Profile) []interface{} {
	a := p.Agency
	if a == nil {
		a = &domain.AgencyData{}
	}
	return []interface{}{
		nullable(a.CompanyName), nullable(a.CNPJ), nullable(a.Address.CEP), nullable(a.Address.State),
		nullable(a.Address.City), nullable(a.Address.Street), nullable(a.Address.Number),
		nullable(a.Address.Complement), nullable(a.Address.Neighborhood),
	}
}

func (r *ProfileRepository) translate(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFoundError("perfil não encontrado")
	}
	if errors.Is(err, domain.ErrMalformedProfile) {
		r.logger.Warn("Perfil malformado rejeitado.", map[string]interface{}{"op": op, "error": err.Error()})
		return apperror.NewInternalError("perfil com formato inválido", err)
	}
	r.logger.Error(fmt.Sprintf("Falha em %s no DB.", op), err)
	return apperror.NewDBError(op, err)
}

// Upsert cria o perfil ou sobrescreve os dados de um perfil do mesmo ID.
// O tipo_usuario só é gravado na criação: um conflito nunca troca o discriminador.
func (r *ProfileRepository) Upsert(ctx context.Context, p domain.Profile) error {
	if err := p.Validate(); err != nil {
		return apperror.NewValidationError(err.Error())
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO profiles (id, email, tipo_usuario, nome_responsavel, telefone,
            nome_empresa, cnpj, cep, estado, cidade, rua, numero, complemento, bairro,
            senha_alterada, data_alteracao_senha, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        ON CONFLICT (id) DO UPDATE SET
            email = EXCLUDED.email, nome_responsavel = EXCLUDED.nome_responsavel,
            telefone = EXCLUDED.telefone, nome_empresa = EXCLUDED.nome_empresa, cnpj = EXCLUDED.cnpj,
            cep = EXCLUDED.cep, estado = EXCLUDED.estado, cidade = EXCLUDED.cidade, rua = EXCLUDED.rua,
            numero = EXCLUDED.numero, complemento = EXCLUDED.complemento, bairro = EXCLUDED.bairro,
            senha_alterada = EXCLUDED.senha_alterada, data_alteracao_senha = EXCLUDED.data_alteracao_senha,
            updated_at = EXCLUDED.updated_at`

	args := []interface{}{p.ID, p.Email, p.Type, p.Name, nullable(p.Phone)}
	args = append(args, agencyArgs(p)...)
	args = append(args, p.PasswordChanged, p.PasswordChangedAt, p.CreatedAt, p.UpdatedAt)

	if _, err := r.DB.ExecContext(ctxTimeout, query, args...); err != nil {
		return r.translate("upsert profile", err)
	}

	r.logger.Info("Perfil gravado.", map[string]interface{}{"user_id": p.ID, "tipo_usuario": p.Type})
	return nil
}

// FindByID busca o perfil do sujeito da sessão.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (domain.Profile, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	row := r.DB.QueryRowContext(ctxTimeout, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, r.translate("find profile", err)
	}
	return p, nil
}

// ListByType lista perfis de um discriminador, mais recentes primeiro.
func (r *ProfileRepository) ListByType(ctx context.Context, userType domain.UserType) ([]domain.Profile, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout,
		`SELECT `+profileColumns+` FROM profiles WHERE tipo_usuario = $1 ORDER BY created_at DESC`, userType)
	if err != nil {
		return nil, r.translate("list profiles", err)
	}
	defer rows.Close()

	profiles := []domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			// Uma linha ruim não derruba a listagem inteira.
			r.logger.Warn("Linha de perfil ignorada na listagem.", map[string]interface{}{"error": err.Error()})
			continue
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.translate("iterate profiles", err)
	}
	return profiles, nil
}

// Update grava os campos editáveis. tipo_usuario e o estado da senha não são tocados.
func (r *ProfileRepository) Update(ctx context.Context, p domain.Profile) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        UPDATE profiles SET nome_responsavel = $1, telefone = $2,
            nome_empresa = $3, cnpj = $4, cep = $5, estado = $6, cidade = $7, rua = $8,
            numero = $9, complemento = $10, bairro = $11, updated_at = $12
        WHERE id = $13`

	args := []interface{}{p.Name, nullable(p.Phone)}
	args = append(args, agencyArgs(p)...)
	args = append(args, p.UpdatedAt, p.ID)

	result, err := r.DB.ExecContext(ctxTimeout, query, args...)
	if err != nil {
		return r.translate("update profile", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return r.translate("update profile rows", err)
	}
	if rows == 0 {
		return apperror.NewNotFoundError("perfil não encontrado")
	}
	return nil
}

// SetPasswordChanged grava a flag senha_alterada e a data da troca (nil limpa a data).
func (r *ProfileRepository) SetPasswordChanged(ctx context.Context, id string, changed bool, at *time.Time) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `UPDATE profiles SET senha_alterada = $1, data_alteracao_senha = $2, updated_at = $3 WHERE id = $4`
	result, err := r.DB.ExecContext(ctxTimeout, query, changed, at, time.Now(), id)
	if err != nil {
		return r.translate("set password flag", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return r.translate("set password flag rows", err)
	}
	if rows == 0 {
		return apperror.NewNotFoundError("perfil não encontrado")
	}
	return nil
}
