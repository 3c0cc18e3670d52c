package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/selectexposure/authcore/internal/api"
	"github.com/selectexposure/authcore/internal/api/handler"
	"github.com/selectexposure/authcore/internal/api/metrics"
	"github.com/selectexposure/authcore/internal/core/service"
	"github.com/selectexposure/authcore/internal/core/validation"
	"github.com/selectexposure/authcore/internal/infrastructure/db/mongo"
	"github.com/selectexposure/authcore/internal/infrastructure/db/postgres"
	"github.com/selectexposure/authcore/internal/infrastructure/db/redis"
	"github.com/selectexposure/authcore/internal/infrastructure/notify"
	"github.com/selectexposure/authcore/internal/infrastructure/queue"
	"github.com/selectexposure/authcore/internal/infrastructure/security"
	"github.com/selectexposure/authcore/pkg/logger"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(cmd *cobra.Command, migrate bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := setup(ctx)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	// --- Stores ---
	pool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("store", "postgres").Wrap(err)
	}
	defer pool.Close()

	if migrate {
		if err := postgres.Migrate(ctx, pool, "up"); err != nil {
			return oops.Code("MIGRATION_FAILED").Wrap(err)
		}
	}

	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "authcore",
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("store", "mongodb").Wrap(err)
	}
	defer func() {
		if err := mongo.Disconnect(mongoClient, shutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("store", "redis").Wrap(err)
	}
	defer rdb.Close()

	audit := mongo.NewAuditRepository(mongoDB, cfg.Mongo.AuditRetention)
	if err := audit.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("audit indexes not ensured")
	}

	// --- Security ---
	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	hashPool := queue.NewHashPool(cfg.Auth.HashWorkers, hasher, logger.Component("hash_pool"))
	hashPool.Start(ctx)

	tokens, err := security.NewJWTIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer,
		security.WithRejectHook(func(reason string) {
			metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
		}))
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	// --- Services ---
	identities := postgres.NewIdentityRepository(pool)
	resets := service.NewResetService(service.ResetDeps{
		Identities: identities,
		Nonces:     postgres.NewResetNonceRepository(pool),
		Hasher:     hashPool,
		Tokens:     tokens,
		Notifier:   notify.NewLogNotifier(logger.Component("notify")),
		Audit:      audit,
	}, cfg.Auth.ResetTokenTTL, logger.Component("reset"))

	authService := service.NewAuthService(service.AuthDeps{
		Identities: identities,
		Hasher:     hashPool,
		Tokens:     tokens,
		Resets:     resets,
		Throttle:   redis.NewLoginThrottle(rdb, cfg.Auth.LoginFailureWindow),
		Audit:      audit,
		Validator:  validation.New(),
	}, service.AuthConfig{
		AccessTTL:        cfg.Auth.AccessTokenTTL,
		RefreshTTL:       cfg.Auth.RefreshTokenTTL,
		MaxLoginFailures: cfg.Auth.LoginMaxFailures,
	}, logger.Component("auth"))

	go resets.RunReaper(ctx, cfg.Auth.ResetPurgeInterval)

	// --- HTTP ---
	e := api.NewRouter(api.RouterDeps{
		Auth: authService,
		Checks: map[string]handler.Check{
			"postgres": handler.PostgresCheck(pool),
			"mongodb":  handler.MongoCheck(mongoDB),
			"redis":    handler.RedisCheck(rdb),
		},
		Log: logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("authcore listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stop()
	hashPool.Wait()
	return nil
}
