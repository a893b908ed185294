package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"400"`
	Category string `json:"category" example:"VALIDATION_ERROR"`
	Message  string `json:"message" example:"Plano deve ser Bronze, Prata ou Ouro."`
	// Redirect é preenchido pelos guards de rota.
	Redirect string `json:"redirect,omitempty" example:"/login"`
}
