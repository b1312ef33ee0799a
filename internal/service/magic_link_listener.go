package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/warta-go-api/internal/dto"
)

// signInEvent is the provider's published notification of a completed
// passwordless sign-in. Sessions discovered this way go through the same
// reconciliation as an interactive completion.
type signInEvent struct {
	SessionToken string `json:"session_token"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
}

// MagicLinkListener holds the long-lived subscription to the provider's
// sign-in event stream. The owner must call Close on teardown so stale
// callbacks are never acted on.
type MagicLinkListener struct {
	conn    *nats.Conn
	subject string
	service MagicLinkService
	logger  zerolog.Logger

	sub    *nats.Subscription
	closed atomic.Bool
}

// NewMagicLinkListener constructs the listener. Start must be called before
// events are consumed.
func NewMagicLinkListener(conn *nats.Conn, subject string, service MagicLinkService, logger zerolog.Logger) *MagicLinkListener {
	return &MagicLinkListener{
		conn:    conn,
		subject: subject,
		service: service,
		logger:  logger.With().Str("component", "magic_link_listener").Logger(),
	}
}

// Start subscribes to the provider's sign-in subject. Instances in the same
// queue group share the stream so each event is reconciled once.
func (l *MagicLinkListener) Start() error {
	if l.conn == nil || l.subject == "" {
		return fmt.Errorf("magic link listener requires a nats connection and subject")
	}

	sub, err := l.conn.QueueSubscribe(l.subject, "warta-magiclink", func(msg *nats.Msg) {
		l.handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to sign-in events: %w", err)
	}

	l.sub = sub
	l.logger.Info().Str("subject", l.subject).Msg("listening for provider sign-in events")
	return nil
}

// Close tears the subscription down. Events arriving afterwards are dropped.
func (l *MagicLinkListener) Close() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}

	if l.sub != nil {
		if err := l.sub.Drain(); err != nil {
			l.logger.Warn().Err(err).Msg("failed to drain sign-in subscription")
		}
	}
}

func (l *MagicLinkListener) handle(payload []byte) {
	if l.closed.Load() {
		return
	}

	var event signInEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		l.logger.Warn().Err(err).Msg("invalid sign-in event payload")
		return
	}

	if event.SessionToken == "" {
		l.logger.Warn().Msg("sign-in event missing session token")
		return
	}

	meta := dto.RequestMeta{IPAddress: event.IPAddress, UserAgent: event.UserAgent}
	if _, err := l.service.CompleteLink(context.Background(), event.SessionToken, meta); err != nil {
		l.logger.Warn().Err(err).Msg("sign-in event reconciliation failed")
	}
}
