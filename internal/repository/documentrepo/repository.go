package documentrepo

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

// DocumentRepository acessa a tabela documentos (somente inserção e leitura).
type DocumentRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewDocumentRepository cria e retorna uma nova instância do repositório de documentos.
func NewDocumentRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *DocumentRepository {
	return &DocumentRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// Create insere o metadado de um documento já gravado no storage.
func (r *DocumentRepository) Create(ctx context.Context, d domain.Document) (domain.Document, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO documentos (id, analise_id, nome, tipo, caminho, tamanho, uploaded_by, data_upload)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		d.ID, d.AnalysisID, d.Name, d.Type, d.Path, d.Size, d.UploadedBy, d.UploadedAt)
	if err != nil {
		r.logger.Error("Falha ao inserir documento no DB.", err)
		return domain.Document{}, apperror.NewDBError("failed to insert document", err)
	}
	return d, nil
}

// ListByAnalysis lista os documentos de uma análise, mais recentes primeiro.
func (r *DocumentRepository) ListByAnalysis(ctx context.Context, analysisID string) ([]domain.Document, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT id, analise_id, nome, tipo, caminho, tamanho, uploaded_by, data_upload
        FROM documentos WHERE analise_id = $1 ORDER BY data_upload DESC`, analysisID)
	if err != nil {
		r.logger.Error("Falha ao listar documentos no DB.", err)
		return nil, apperror.NewDBError("failed to list documents", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.AnalysisID, &d.Name, &d.Type, &d.Path, &d.Size, &d.UploadedBy, &d.UploadedAt); err != nil {
			return nil, apperror.NewDBError("failed to scan document", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("failed to iterate documents", err)
	}
	return docs, nil
}

// FindByID busca o metadado de um documento.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (domain.Document, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var d domain.Document
	err := r.DB.QueryRowContext(ctxTimeout, `
        SELECT id, analise_id, nome, tipo, caminho, tamanho, uploaded_by, data_upload
        FROM documentos WHERE id = $1`, id).
		Scan(&d.ID, &d.AnalysisID, &d.Name, &d.Type, &d.Path, &d.Size, &d.UploadedBy, &d.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, apperror.NewNotFoundError(fmt.Sprintf("Documento '%s' não encontrado", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar documento no DB.", err)
		return domain.Document{}, apperror.NewDBError("failed to find document", err)
	}
	return d, nil
}
