package ports

import (
	"context"
	"time"

	"github.com/selectexposure/authcore/internal/core/domain"
)

// ResetNotifier delivers reset tokens out of band (email in production).
type ResetNotifier interface {
	SendResetToken(ctx context.Context, identity *domain.Identity, token string, expiresAt time.Time) error
}

// AuditRecorder appends to the authentication audit trail. Failures are
// logged by callers and never fail the operation being audited.
type AuditRecorder interface {
	Record(ctx context.Context, event *domain.AuthEvent) error
}

// LoginThrottle counts failed logins per email inside a sliding window.
type LoginThrottle interface {
	Failures(ctx context.Context, email string) (int, error)
	RecordFailure(ctx context.Context, email string) (int, error)
	Reset(ctx context.Context, email string) error
}
