package documentservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/storage"
)

// DocumentRepository define o contrato de metadados de documentos.
type DocumentRepository interface {
	Create(ctx context.Context, d domain.Document) (domain.Document, error)
	ListByAnalysis(ctx context.Context, analysisID string) ([]domain.Document, error)
	FindByID(ctx context.Context, id string) (domain.Document, error)
}

// AnalysisReader busca a análise dona dos documentos.
type AnalysisReader interface {
	FindByID(ctx context.Context, id string) (domain.Analysis, error)
}

// Upload é um arquivo recebido para anexar a uma análise.
type Upload struct {
	Name string
	Type domain.DocumentType
	Size int64
	Body io.Reader
}

// Service implementa o fluxo de anexos de documentos.
type Service struct {
	repo     DocumentRepository
	analyses AnalysisReader
	store    storage.ObjectStore
	maxBytes int64
	logger   logger.Logger
	now      func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Documentos.
func NewService(repo DocumentRepository, analyses AnalysisReader, store storage.ObjectStore, maxBytes int64, logger logger.Logger) *Service {
	return &Service{repo: repo, analyses: analyses, store: store, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// authorize confere se o ator pode ver a análise: admin ou imobiliária dona.
func (s *Service) authorize(ctx context.Context, actor authstate.State, analysisID string) error {
	if !actor.IsAdmin() && !actor.IsImobiliaria() {
		return apperror.NewForbiddenError("Acesso negado.")
	}
	a, err := s.analyses.FindByID(ctx, analysisID)
	if err != nil {
		return err
	}
	if actor.IsImobiliaria() && a.AgencyID != actor.UserID() {
		return apperror.NewNotFoundError(fmt.Sprintf("Análise '%s' não encontrada", analysisID))
	}
	return nil
}

func cleanName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// Upload grava o arquivo no storage e depois o metadado. Se o metadado
// falhar, o objeto é removido; o erro devolvido reúne as duas falhas.
func (s *Service) Upload(ctx context.Context, actor authstate.State, analysisID string, up Upload) (domain.Document, error) {
	if err := s.authorize(ctx, actor, analysisID); err != nil {
		return domain.Document{}, err
	}

	name := cleanName(up.Name)
	if name == "" {
		return domain.Document{}, apperror.NewValidationError("Nome do arquivo é obrigatório.")
	}
	if !up.Type.Valid() {
		return domain.Document{}, apperror.NewValidationError(fmt.Sprintf("Tipo de documento inválido: %q", up.Type))
	}
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return domain.Document{}, apperror.NewValidationError(fmt.Sprintf("Arquivo excede o limite de %d MB.", s.maxBytes>>20))
	}

	now := s.now()
	objectPath := domain.DocumentPath(analysisID, name, now)

	body := up.Body
	if s.maxBytes > 0 {
		body = io.LimitReader(up.Body, s.maxBytes+1)
	}
	written, err := s.store.Put(ctx, objectPath, body)
	if err != nil {
		s.logger.Error("Falha ao gravar arquivo no storage.", err)
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Document{}, apperror.NewConflictError("Já existe um arquivo com este nome neste instante; tente novamente.")
		}
		if errors.Is(err, storage.ErrInvalidPath) {
			return domain.Document{}, apperror.NewValidationError(fmt.Sprintf("Nome de arquivo inválido: %q", name))
		}
		return domain.Document{}, apperror.NewInternalError("Falha ao gravar o arquivo.", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		if delErr := s.store.Delete(ctx, objectPath); delErr != nil {
			s.logger.Error("Falha ao remover arquivo acima do limite.", delErr)
		}
		return domain.Document{}, apperror.NewValidationError(fmt.Sprintf("Arquivo excede o limite de %d MB.", s.maxBytes>>20))
	}

	doc := domain.Document{
		ID:         uuid.NewString(),
		AnalysisID: analysisID,
		Name:       name,
		Type:       up.Type,
		Path:       objectPath,
		Size:       written,
		UploadedBy: actor.UserID(),
		UploadedAt: now,
	}

	created, err := s.repo.Create(ctx, doc)
	if err != nil {
		delErr := s.store.Delete(ctx, objectPath)
		if delErr != nil {
			s.logger.Error("Arquivo órfão no storage após falha do metadado.", delErr)
		} else {
			s.logger.Warn("Metadado falhou; arquivo removido do storage.", map[string]interface{}{"caminho": objectPath})
		}
		return domain.Document{}, apperror.NewPartialWriteError("Falha ao registrar o documento.", err, delErr)
	}

	s.logger.Info("Documento anexado.", map[string]interface{}{
		"documento_id": created.ID,
		"analise_id":   analysisID,
		"tipo":         created.Type,
		"tamanho":      created.Size,
	})
	return created, nil
}

// List lista os documentos da análise, mais recentes primeiro.
func (s *Service) List(ctx context.Context, actor authstate.State, analysisID string) ([]domain.Document, error) {
	if err := s.authorize(ctx, actor, analysisID); err != nil {
		return nil, err
	}
	return s.repo.ListByAnalysis(ctx, analysisID)
}

// Download abre o arquivo do documento. O chamador deve fechar o leitor.
func (s *Service) Download(ctx context.Context, actor authstate.State, documentID string) (domain.Document, io.ReadCloser, error) {
	if !actor.IsAdmin() && !actor.IsImobiliaria() {
		return domain.Document{}, nil, apperror.NewForbiddenError("Acesso negado.")
	}
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return domain.Document{}, nil, err
	}
	if err := s.authorize(ctx, actor, doc.AnalysisID); err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return domain.Document{}, nil, apperror.NewNotFoundError(fmt.Sprintf("Documento '%s' não encontrado", documentID))
		}
		return domain.Document{}, nil, err
	}

	rc, err := s.store.Open(ctx, doc.Path)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Metadado sem arquivo no storage.", map[string]interface{}{"documento_id": documentID, "caminho": doc.Path})
		return domain.Document{}, nil, apperror.NewNotFoundError("Arquivo do documento não encontrado.")
	}
	if err != nil {
		return domain.Document{}, nil, apperror.NewInternalError("Falha ao abrir o arquivo.", err)
	}
	return doc, rc, nil
}
