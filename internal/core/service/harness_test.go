package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/selectexposure/authcore/internal/core/ports"
	"github.com/selectexposure/authcore/internal/core/validation"
	"github.com/selectexposure/authcore/internal/infrastructure/security"
)

const testPassword = "correct-horse-battery"

type harness struct {
	svc      *AuthService
	resets   *ResetService
	store    *memStore
	notifier *memNotifier
	throttle *memThrottle
	audit    *memAudit
	clock    *testClock
	tokens   *security.JWTIssuer
	hasher   *ctxHasher
}

func newHarness(t *testing.T, maxFailures int) *harness {
	t.Helper()
	h := &harness{
		store:    newMemStore(),
		notifier: &memNotifier{},
		throttle: newMemThrottle(),
		audit:    &memAudit{},
		clock:    &testClock{t: time.Now().UTC()},
	}

	tokens, err := security.NewJWTIssuer([]byte("test-secret-test-secret-test-secret"), "authcore-test",
		security.WithClock(h.clock.now))
	require.NoError(t, err)
	h.tokens = tokens

	hasher := newCtxHasher()
	h.hasher = hasher
	log := zerolog.Nop()

	h.resets = NewResetService(ResetDeps{
		Identities: h.store,
		Nonces:     h.store,
		Hasher:     hasher,
		Tokens:     tokens,
		Notifier:   h.notifier,
		Audit:      h.audit,
	}, 15*time.Minute, log, WithClock(h.clock.now))

	h.svc = NewAuthService(AuthDeps{
		Identities: h.store,
		Hasher:     hasher,
		Tokens:     tokens,
		Resets:     h.resets,
		Throttle:   h.throttle,
		Audit:      h.audit,
		Validator:  validation.New(validation.WithClock(h.clock.now)),
	}, AuthConfig{
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		MaxLoginFailures: maxFailures,
	}, log, WithClock(h.clock.now))
	return h
}

func signupInput(email, name string) ports.SignupInput {
	return ports.SignupInput{
		Email:           email,
		DisplayName:     name,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	}
}

func profileInput(phone string) ports.ProfileInput {
	return ports.ProfileInput{
		LegalFullName:  "Ada Lovelace",
		ShowNamePublic: true,
		DateOfBirth:    "1990-12-10",
		PhoneNumber:    phone,
		Country:        "UK",
		Gender:         "female",
		Height:         "170cm",
		Weight:         "60kg",
		ShoeSize:       "38",
		SkinTone:       "light",
		HairColor:      "brown",
		BodyTypeFemale: "athletic",
	}
}
