package authservice

import (
	"context"

	"s8garante/internal/pkg/logger"
)

// Mailer entrega o link de redefinição de senha.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// LogMailer apenas registra o link no log. Não há envio real de e-mail.
type LogMailer struct {
	logger logger.Logger
}

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.logger.Info("Link de redefinição de senha gerado.", map[string]interface{}{"email": to, "link": link})
	return nil
}
