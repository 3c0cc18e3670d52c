package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/selectexposure/authcore/internal/core/ports"
	"github.com/selectexposure/authcore/internal/core/service"
	"github.com/selectexposure/authcore/internal/core/validation"
	"github.com/selectexposure/authcore/internal/infrastructure/db/postgres"
	"github.com/selectexposure/authcore/internal/infrastructure/queue"
	"github.com/selectexposure/authcore/internal/infrastructure/security"
	"github.com/selectexposure/authcore/internal/pkg/config"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// NewBootstrapAdminCmd creates the bootstrap-admin subcommand.
func NewBootstrapAdminCmd() *cobra.Command {
	var email, displayName string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create or promote the first administrator",
		Long: `Grant the admin flag to the identity registered under --email. When no
such identity exists it is created with the password read from the terminal.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBootstrapAdmin(cmd, email, displayName)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email of the administrator")
	cmd.Flags().StringVar(&displayName, "display-name", "admin", "display name used when the identity is created")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runBootstrapAdmin(cmd *cobra.Command, email, displayName string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(ctx)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	password, err := promptPassword(cmd.ErrOrStderr())
	if err != nil {
		return oops.Code("PROMPT_FAILED").Wrap(err)
	}

	pool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	svc, stop, err := bootstrapService(ctx, cfg, postgres.NewIdentityRepository(pool), log)
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").Wrap(err)
	}
	defer stop()

	identity, err := svc.BootstrapAdmin(ctx, ports.SignupInput{
		Email:           email,
		DisplayName:     displayName,
		Password:        password,
		ConfirmPassword: password,
	})
	if err != nil {
		return oops.Code("BOOTSTRAP_FAILED").With("email", email).Wrap(err)
	}

	cmd.Printf("Administrator ready: %s (%s)\n", identity.Email, identity.ID)
	return nil
}

// bootstrapService wires the facade with only what BootstrapAdmin touches.
func bootstrapService(ctx context.Context, cfg *config.Config, identities ports.IdentityRepository, log zerolog.Logger) (*service.AuthService, func(), error) {
	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := security.NewJWTIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer)
	if err != nil {
		return nil, nil, err
	}

	poolCtx, cancel := context.WithCancel(ctx)
	hashPool := queue.NewHashPool(1, hasher, log)
	hashPool.Start(poolCtx)

	svc := service.NewAuthService(service.AuthDeps{
		Identities: identities,
		Hasher:     hashPool,
		Tokens:     tokens,
	}, service.AuthConfig{}, log)

	return svc, func() {
		cancel()
		hashPool.Wait()
	}, nil
}

// promptPassword reads the password twice without echo and applies the
// credential rule before anything is sent to the database.
func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(w, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}

	fmt.Fprint(w, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}

	if !bytes.Equal(first, second) {
		return "", errPasswordMismatch
	}
	if err := validation.New().Password("password", string(first)); err != nil {
		return "", err
	}
	return string(first), nil
}
