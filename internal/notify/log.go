package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer writes messages to the log instead of sending them. Used in
// development and when no mail provider is configured.
type LogMailer struct {
	log zerolog.Logger
}

var _ Notifier = (*LogMailer)(nil)

// NewLogMailer creates a LogMailer.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "log_mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	msg, err := Prepare(msg)
	if err != nil {
		return err
	}
	m.log.Info().
		Str("message_id", msg.ID).
		Strs("to", msg.To).
		Strs("cc", msg.Cc).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Mail")
	return nil
}
