package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/domain"
)

// LogSender is the default notifier.Sender: it logs every outbound
// message instead of delivering it. No chat-platform client (Telegram,
// Discord, Slack) is imported anywhere in this build's dependency
// sources, so there is nothing to ground a real Sender on; a production
// deployment supplies its own Sender implementation and passes it to
// core.New in place of this one.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "notifier.sender").Logger()}
}

func (s *LogSender) SendMessage(_ context.Context, channel domain.Channel, chatID string, text string) error {
	s.log.Info().Str("channel", string(channel)).Str("chat_id", chatID).Str("text", text).Msg("notification")
	return nil
}
