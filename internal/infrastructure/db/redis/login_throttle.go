package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/selectexposure/authcore/internal/core/domain"
	"github.com/selectexposure/authcore/internal/core/ports"
)

const defaultFailureWindow = 15 * time.Minute

// LoginThrottle counts failed logins per email backed by Redis.
// Key format: login_failures:<normalised email>
// The window starts at the first failure and is not extended by later ones.
type LoginThrottle struct {
	client redis.Cmdable
	window time.Duration
}

// NewLoginThrottle creates a LoginThrottle wrapping the given Redis client.
func NewLoginThrottle(client redis.Cmdable, window time.Duration) *LoginThrottle {
	if window <= 0 {
		window = defaultFailureWindow
	}
	return &LoginThrottle{client: client, window: window}
}

// Failures returns the failures recorded in the current window.
func (l *LoginThrottle) Failures(ctx context.Context, email string) (int, error) {
	n, err := l.client.Get(ctx, l.key(email)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("login throttle get: %w", err)
	}
	return n, nil
}

// RecordFailure increments the counter, opening the window on the first
// failure, and returns the new count.
func (l *LoginThrottle) RecordFailure(ctx context.Context, email string) (int, error) {
	key := l.key(email)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("login throttle incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return int(n), fmt.Errorf("login throttle expire: %w", err)
		}
	}
	return int(n), nil
}

// Reset clears the counter after a successful login.
func (l *LoginThrottle) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("login throttle reset: %w", err)
	}
	return nil
}

func (l *LoginThrottle) key(email string) string {
	return "login_failures:" + domain.NormalizeEmail(email)
}

var _ ports.LoginThrottle = (*LoginThrottle)(nil)
