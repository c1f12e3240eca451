package notify

import (
	"context"

	"github.com/rs/zerolog"

	"cityguide-billing/internal/domain/ports/adapter"
)

var _ adapter.NotificationPublisher = (*LogPublisher)(nil)

// LogPublisher writes notifications to the log instead of a broker.
// Used in dev and when no AMQP URL is configured.
type LogPublisher struct {
	log *zerolog.Logger
}

func NewLogPublisher(logger *zerolog.Logger) *LogPublisher {
	l := logger.With().Str("component", "LogPublisher").Logger()
	return &LogPublisher{log: &l}
}

func (p *LogPublisher) Publish(ctx context.Context, n adapter.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.log.Info().
		Str("kind", string(n.Kind)).
		Str("user_id", n.UserID).
		Str("place_id", n.PlaceID).
		Str("language", n.Language).
		Msg(n.Text)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
