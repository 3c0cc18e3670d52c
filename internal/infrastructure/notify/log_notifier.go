// Package notify delivers reset tokens out of band.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

// LogNotifier stands in for email delivery. It logs that a reset token was
// issued and hands the token to an optional sink; the token itself is never
// written to the log.
type LogNotifier struct {
	log  zerolog.Logger
	sink func(email, token string)
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// WithSink returns a copy of n that also passes every token to sink.
// Development setups use it to surface tokens on a local console.
func (n *LogNotifier) WithSink(sink func(email, token string)) *LogNotifier {
	c := *n
	c.sink = sink
	return &c
}

func (n *LogNotifier) SendResetToken(ctx context.Context, identity *domain.Identity, token string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().
		Str("identity_id", identity.ID).
		Time("expires_at", expiresAt).
		Msg("password reset token issued")
	if n.sink != nil {
		n.sink(identity.Email, token)
	}
	return nil
}

var _ ports.ResetNotifier = (*LogNotifier)(nil)
