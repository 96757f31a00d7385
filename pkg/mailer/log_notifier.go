package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes recovery codes to the log instead of sending mail. It is
// meant for local development only.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendRecoveryCode(_ context.Context, toEmail, code string) error {
	n.logger.Warn("recovery code (log mail driver)", zap.String("to", toEmail), zap.String("code", code))
	return nil
}
