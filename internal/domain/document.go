package domain

import (
	"fmt"
	"time"
)

// DocumentType é a etiqueta do tipo de documento anexado.
type DocumentType string

const (
	DocRG               DocumentType = "RG"
	DocCPF              DocumentType = "CPF"
	DocComprovanteRenda DocumentType = "Comprovante de Renda"
	DocComprovanteResid DocumentType = "Comprovante de Residência"
	DocContratoLocacao  DocumentType = "Contrato de Locação"
	DocContratoFianca   DocumentType = "Contrato de Fiança"
	DocTermoAssinado    DocumentType = "Termo Assinado"
	DocAditivo          DocumentType = "Aditivo"
	DocOutro            DocumentType = "Outro"
)

// DocumentTypes lista os tipos aceitos.
var DocumentTypes = []DocumentType{
	DocRG, DocCPF, DocComprovanteRenda, DocComprovanteResid, DocContratoLocacao,
	DocContratoFianca, DocTermoAssinado, DocAditivo, DocOutro,
}

// Valid informa se o tipo é conhecido.
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Document é o metadado de um arquivo guardado no bucket "documentos".
// Documentos só são inseridos; não há atualização nem remoção.
type Document struct {
	ID         string       `json:"id"`
	AnalysisID string       `json:"analise_id"`
	Name       string       `json:"nome"`
	Type       DocumentType `json:"tipo"`
	Path       string       `json:"caminho"`
	Size       int64        `json:"tamanho"`
	UploadedBy string       `json:"uploaded_by"`
	UploadedAt time.Time    `json:"data_upload"`
}

// DocumentBucket é o bucket de armazenamento dos anexos.
const DocumentBucket = "documentos"

// DocumentPath monta o caminho do objeto: <analise>/<unixMillis>-<nome>.
func DocumentPath(analysisID, fileName string, at time.Time) string {
	return fmt.Sprintf("%s/%d-%s", analysisID, at.UnixMilli(), fileName)
}
