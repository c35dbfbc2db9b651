// Package notifier resolves who a message goes to and delivers it
// through an abstract transport (spec §4.I). Grounded on the teacher's
// capability-interface style (internal/domain/interfaces.go defines
// narrow capability interfaces consumed by services) applied to a
// SendMessage capability.
package notifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/store"
)

// Sender is the abstract delivery capability the core is given; a real
// deployment wires this to Telegram/Discord/Slack clients. Errors
// propagate to the caller but never abort a scan.
type Sender interface {
	SendMessage(ctx context.Context, channel domain.Channel, chatID string, text string) error
}

// Recipient is a resolved (channel, chatId) pair to deliver to.
type Recipient struct {
	Channel domain.Channel
	ChatID  string
}

// Notifier resolves recipients and delivers messages.
type Notifier struct {
	db     *store.DB
	sender Sender
	log    zerolog.Logger
}

func New(db *store.DB, sender Sender, log zerolog.Logger) *Notifier {
	return &Notifier{db: db, sender: sender, log: log.With().Str("component", "notifier").Logger()}
}

// Resolve implements spec §4.I's fallback chain: explicit
// (channel, chatId) on the Alert, else the user's latest session, else
// the user's own platform identity. Returns false if nothing resolves.
func (n *Notifier) Resolve(ctx context.Context, user domain.User, explicitChannel domain.Channel, explicitChatID string) (Recipient, bool) {
	if explicitChannel != "" && explicitChatID != "" {
		return Recipient{Channel: explicitChannel, ChatID: explicitChatID}, true
	}

	if sess, err := n.db.LatestSessionForUser(ctx, user.ID); err == nil {
		return Recipient{Channel: sess.Channel, ChatID: sess.ChatID}, true
	}

	if user.Platform != "" && user.PlatformUserID != "" {
		return Recipient{Channel: user.Platform, ChatID: user.PlatformUserID}, true
	}

	return Recipient{}, false
}

// Notify resolves a recipient for user and delivers text, logging a
// warning and returning nil (not an error) if no recipient can be
// resolved (spec §4.I: "dropped with a log warning").
func (n *Notifier) Notify(ctx context.Context, user domain.User, explicitChannel domain.Channel, explicitChatID string, text string) error {
	recipient, ok := n.Resolve(ctx, user, explicitChannel, explicitChatID)
	if !ok {
		n.log.Warn().Str("user_id", user.ID).Msg("notification dropped: no recipient could be resolved")
		return nil
	}
	if err := n.sender.SendMessage(ctx, recipient.Channel, recipient.ChatID, text); err != nil {
		return fmt.Errorf("send message to %s/%s: %w", recipient.Channel, recipient.ChatID, err)
	}
	return nil
}
