package accountrepo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

// uniqueViolation é o código SQLSTATE do PostgreSQL para chave única violada.
const uniqueViolation = "23505"

// AccountRepository persiste as credenciais na tabela auth_users.
type AccountRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewAccountRepository cria uma nova instância do AccountRepository, injetando o DB.
func NewAccountRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *AccountRepository {
	return &AccountRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// Create insere uma nova conta. E-mail duplicado vira ConflictError.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `INSERT INTO auth_users (id, email, password_hash, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		account.ID,
		strings.ToLower(account.Email),
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			r.logger.Info("E-mail já cadastrado.", map[string]interface{}{"email": account.Email})
			return apperror.NewConflictError("O e-mail informado já está em uso.")
		}
		r.logger.Error("Falha ao inserir conta no DB.", err)
		return apperror.NewDBError("failed to insert account", err)
	}

	r.logger.Debug("Conta criada.", map[string]interface{}{"user_id": account.ID})
	return nil
}

// FindByEmail busca uma conta pelo e-mail (sem diferenciar maiúsculas).
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.findOne(ctx, `SELECT id, email, password_hash, created_at, updated_at FROM auth_users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

// FindByID busca uma conta pelo ID.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (domain.Account, error) {
	return r.findOne(ctx, `SELECT id, email, password_hash, created_at, updated_at FROM auth_users WHERE id = $1`, id)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg string) (domain.Account, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var a domain.Account
	err := r.DB.QueryRowContext(ctxTimeout, query, arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, apperror.NewNotFoundError("conta não encontrada")
	}
	if err != nil {
		r.logger.Error("Falha ao buscar conta no DB.", err)
		return domain.Account{}, apperror.NewDBError("failed to find account", err)
	}
	return a, nil
}

// UpdatePasswordHash troca o hash da senha da conta.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `UPDATE auth_users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.DB.ExecContext(ctxTimeout, query, hash, time.Now(), id)
	if err != nil {
		r.logger.Error("Falha ao atualizar senha no DB.", err)
		return apperror.NewDBError("failed to update password", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("failed to check affected rows", err)
	}
	if rows == 0 {
		return apperror.NewNotFoundError("conta não encontrada")
	}
	return nil
}

// Delete remove a conta. Usado apenas como compensação quando o perfil não pôde ser criado.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if _, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM auth_users WHERE id = $1`, id); err != nil {
		r.logger.Error("Falha ao remover conta no DB.", err)
		return apperror.NewDBError("failed to delete account", err)
	}
	return nil
}
