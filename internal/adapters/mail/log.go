package mail

import (
	"context"
	"log/slog"

	"github.com/vncsmyrnk/stv/internal/core/ports"
)

// LogSender writes messages to the log instead of delivering them. Ballot
// links end up in the log, so it is meant for development only.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) ports.Mailer {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("mail", "to", to, "subject", subject, "body", body)
	return nil
}
