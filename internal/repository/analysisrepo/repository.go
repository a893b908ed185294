package analysisrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

const analysisColumns = `id, imobiliaria_id, nome_locatario, cpf_locatario, email_locatario, telefone_locatario,
        renda_comprovada, plano, status, data_envio, data_decisao, admin_decisao, observacoes`

// AnalysisRepository acessa a tabela analises.
type AnalysisRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewAnalysisRepository cria e retorna uma nova instância do repositório de análises.
func NewAnalysisRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *AnalysisRepository {
	return &AnalysisRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (domain.Analysis, error) {
	var (
		a            domain.Analysis
		email, phone sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.AgencyID, &a.TenantName, &a.TenantCPF, &email, &phone,
		&a.DeclaredIncome, &a.Plan, &a.Status, &a.SubmittedAt, &a.DecidedAt, &a.DecidedBy, &a.Notes,
	)
	a.TenantEmail = email.String
	a.TenantPhone = phone.String
	return a, err
}

// Create insere a análise recém-enviada.
func (r *AnalysisRepository) Create(ctx context.Context, a domain.Analysis) (domain.Analysis, error) {
	r.logger.Debug("Inserindo análise.", map[string]interface{}{"imobiliaria_id": a.AgencyID, "plano": a.Plan})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO analises (id, imobiliaria_id, nome_locatario, cpf_locatario, email_locatario,
            telefone_locatario, renda_comprovada, plano, status, data_envio)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		a.ID, a.AgencyID, a.TenantName, a.TenantCPF,
		sql.NullString{String: a.TenantEmail, Valid: a.TenantEmail != ""},
		sql.NullString{String: a.TenantPhone, Valid: a.TenantPhone != ""},
		a.DeclaredIncome, a.Plan, a.Status, a.SubmittedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir análise no DB.", err)
		return domain.Analysis{}, apperror.NewDBError("failed to insert analysis", err)
	}

	r.logger.Info("Análise criada.", map[string]interface{}{"analise_id": a.ID, "imobiliaria_id": a.AgencyID})
	return a, nil
}

// FindByID busca uma análise.
func (r *AnalysisRepository) FindByID(ctx context.Context, id string) (domain.Analysis, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	a, err := scanAnalysis(r.DB.QueryRowContext(ctxTimeout, `SELECT `+analysisColumns+` FROM analises WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Analysis{}, apperror.NewNotFoundError(fmt.Sprintf("Análise '%s' não encontrada", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar análise no DB.", err)
		return domain.Analysis{}, apperror.NewDBError("failed to find analysis", err)
	}
	return a, nil
}

// List devolve as análises do filtro, mais recentes primeiro.
func (r *AnalysisRepository) List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.Analysis, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if filter.AgencyID != "" {
		args = append(args, filter.AgencyID)
		where = append(where, fmt.Sprintf("imobiliaria_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + analysisColumns + ` FROM analises`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY data_envio DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar análises no DB.", err)
		return nil, apperror.NewDBError("failed to list analyses", err)
	}
	defer rows.Close()

	analyses := []domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, apperror.NewDBError("failed to scan analysis", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("failed to iterate analyses", err)
	}
	return analyses, nil
}

// Decide aplica a decisão apenas se a análise ainda estiver em Aguardando.
// Nenhuma linha afetada vira NotFoundError (id inexistente) ou ConflictError
// (outra decisão já foi gravada).
func (r *AnalysisRepository) Decide(ctx context.Context, d domain.Decision) (domain.Analysis, error) {
	r.logger.Debug("Aplicando decisão condicional.", map[string]interface{}{"analise_id": d.AnalysisID, "status": d.Status})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE analises
        SET status = $1, data_decisao = $2, admin_decisao = $3, observacoes = $4
        WHERE id = $5 AND status = $6
        RETURNING ` + analysisColumns

	a, err := scanAnalysis(r.DB.QueryRowContext(ctxTimeout, query,
		d.Status, d.DecidedAt, d.AdminID, d.Note, d.AnalysisID, domain.StatusAguardando,
	))
	if err == nil {
		r.logger.Info("Decisão gravada.", map[string]interface{}{"analise_id": a.ID, "status": a.Status, "admin_decisao": d.AdminID})
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		r.logger.Error("Falha ao gravar decisão no DB.", err)
		return domain.Analysis{}, apperror.NewDBError("failed to decide analysis", err)
	}

	// Nenhuma linha: distingue análise inexistente de decisão concorrente.
	current, findErr := r.FindByID(ctx, d.AnalysisID)
	if findErr != nil {
		return domain.Analysis{}, findErr
	}
	r.logger.Warn("Decisão recusada: análise já decidida.", map[string]interface{}{
		"analise_id": d.AnalysisID, "status_atual": current.Status,
	})
	return domain.Analysis{}, apperror.NewConflictError(
		fmt.Sprintf("A análise já foi decidida (%s) por outro administrador.", current.Status))
}
