package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

type options struct {
	now func() time.Time
}

// Option configures AuthService and ResetService.
type Option func(*options)

// WithClock overrides the wall clock. Tests use it to move past expiries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, *domain.AuthEvent) error { return nil }

type nopThrottle struct{}

func (nopThrottle) Failures(context.Context, string) (int, error)      { return 0, nil }
func (nopThrottle) RecordFailure(context.Context, string) (int, error) { return 0, nil }
func (nopThrottle) Reset(context.Context, string) error                { return nil }

// record appends to the audit trail. Failures are logged, never returned.
func record(ctx context.Context, audit ports.AuditRecorder, log zerolog.Logger, event *domain.AuthEvent) {
	if err := audit.Record(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", string(event.Type)).Msg("failed to record auth event")
	}
}
