package respond

import (
	"encoding/json"
	"net/http"

	"s8garante/internal/domain"
	apperror "s8garante/internal/errors"
	"s8garante/internal/pkg/logger"
)

// JSON escreve data como JSON com o status informado. data nil não gera corpo.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error traduz o erro para {code, category, message}. Erros 5xx são registrados
// no log; a mensagem interna não é exposta ao cliente.
func Error(w http.ResponseWriter, log logger.Logger, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		log.Error("Erro interno ao processar requisição:", err)
		message = "Ocorreu um erro inesperado. Tente novamente."
	}

	JSON(w, status, domain.ErrorResponse{Code: status, Category: category, Message: message})
}

// Service é o atalho usado pelos handlers: erro traduzido ou sucesso com successStatus.
func Service(w http.ResponseWriter, log logger.Logger, data interface{}, err error, successStatus int) {
	if err != nil {
		Error(w, log, err)
		return
	}
	JSON(w, successStatus, data)
}
