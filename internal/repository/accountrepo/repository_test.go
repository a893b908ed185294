package accountrepo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

func newRepo(t *testing.T) (*AccountRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAccountRepository(db, time.Second, logger.Nop()), mock
}

func TestCreate_DuplicateEmailIsConflict(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("INSERT INTO auth_users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), domain.Account{ID: "u1", Email: "A@B.com"})

	assert.IsType(t, &apperror.ConflictError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_LowercasesEmail(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO auth_users").
		WithArgs("u1", "a@b.com", "hash", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), domain.Account{ID: "u1", Email: "A@B.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "updated_at"}).
			AddRow("u1", "a@b.com", "hash", now, now))

	acc, err := repo.FindByEmail(context.Background(), " A@B.com ")

	require.NoError(t, err)
	assert.Equal(t, "u1", acc.ID)
	assert.Equal(t, "hash", acc.PasswordHash)
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT id, email, password_hash").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "x@y.com")
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestUpdatePasswordHash_NoRows(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("UPDATE auth_users SET password_hash").
		WithArgs("novo", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), "u1", "novo")
	assert.IsType(t, &apperror.NotFoundError{}, err)
}
