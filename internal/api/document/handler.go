package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"s8garante/internal/api/view"
	"s8garante/internal/authstate"
	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
	"s8garante/internal/pkg/middleware"
	"s8garante/internal/pkg/respond"
	"s8garante/internal/service/documentservice"
)

// DocumentService define o contrato que o Handler espera da camada de Serviço.
type DocumentService interface {
	Upload(ctx context.Context, actor authstate.State, analysisID string, up documentservice.Upload) (domain.Document, error)
	List(ctx context.Context, actor authstate.State, analysisID string) ([]domain.Document, error)
	Download(ctx context.Context, actor authstate.State, documentID string) (domain.Document, io.ReadCloser, error)
}

// Handler agrupa os handlers de documentos.
type Handler struct {
	Service  DocumentService
	Logger   logger.Logger
	MaxBytes int64
}

// NewHandler recebe o limite de upload para dimensionar o parsing do multipart.
func NewHandler(svc DocumentService, maxBytes int64, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log, MaxBytes: maxBytes}
}

// ListHandler lida com GET /v1/{imobiliaria|admin}/analises/{id}/documentos.
// @Summary Lista os documentos de uma análise
// @Tags documentos
// @Produce json
// @Param id path string true "ID da análise"
// @Success 200 {array} view.Document
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /imobiliaria/analises/{id}/documentos [get]
// @Router /admin/analises/{id}/documentos [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Service.List(r.Context(), middleware.StateFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view.NewDocuments(docs))
}

// UploadHandler lida com POST /v1/{imobiliaria|admin}/analises/{id}/documentos.
// @Summary Anexa um documento à análise
// @Description multipart/form-data com os campos "arquivo" e "tipo".
// @Tags documentos
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "ID da análise"
// @Param arquivo formData file true "Arquivo"
// @Param tipo formData string true "Tipo do documento (RG, CPF, Comprovante de Renda...)"
// @Success 201 {object} view.Document
// @Failure 400 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse "Falha parcial: objeto gravado sem metadado"
// @Security ApiKeyAuth
// @Router /imobiliaria/analises/{id}/documentos [post]
// @Router /admin/analises/{id}/documentos [post]
func (h *Handler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	// Margem para os demais campos do formulário.
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, h.Logger, apperror.NewValidationError("Arquivo excede o tamanho máximo permitido."))
			return
		}
		respond.Error(w, h.Logger, apperror.NewValidationError("Formulário multipart inválido."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("arquivo")
	if err != nil {
		respond.Error(w, h.Logger, apperror.NewValidationError("Campo 'arquivo' é obrigatório."))
		return
	}
	defer file.Close()

	doc, err := h.Service.Upload(r.Context(), middleware.StateFromContext(r.Context()), r.PathValue("id"), documentservice.Upload{
		Name: header.Filename,
		Type: domain.DocumentType(r.FormValue("tipo")),
		Size: header.Size,
		Body: file,
	})
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view.NewDocument(doc))
}

// DownloadHandler lida com GET /v1/documentos/{id}/download.
// @Summary Baixa o arquivo de um documento
// @Tags documentos
// @Produce octet-stream
// @Param id path string true "ID do documento"
// @Success 200 {file} binary
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /documentos/{id}/download [get]
func (h *Handler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	doc, body, err := h.Service.Download(r.Context(), middleware.StateFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respond.Error(w, h.Logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Name}))
	if doc.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.Logger.Error(fmt.Sprintf("Falha ao enviar documento %s", doc.ID), err)
	}
}
