package notify

import (
	"context"

	"go.uber.org/zap"
)

// Sender is the outbound notification channel. Delivery is best-effort:
// callers log failures and never let them surface as booking or status
// errors.
type Sender interface {
	Send(ctx context.Context, toAddress, subject, body string) error
}

// LogSender writes would-be messages to the log. It is the development
// fallback when no mail provider is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, toAddress, subject, body string) error {
	s.logger.Info("outbound notification (log only)",
		zap.String("to", toAddress),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
