// Package main is the entry point for the pharmacy back-office API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "github.com/pharmacy/backoffice/docs"
	"github.com/pharmacy/backoffice/internal/api"
	"github.com/pharmacy/backoffice/internal/api/handler"
	"github.com/pharmacy/backoffice/internal/api/middleware"
	"github.com/pharmacy/backoffice/internal/core/service"
	mongodb "github.com/pharmacy/backoffice/internal/infrastructure/db/mongo"
	redisdb "github.com/pharmacy/backoffice/internal/infrastructure/db/redis"
	"github.com/pharmacy/backoffice/internal/infrastructure/queue"
	"github.com/pharmacy/backoffice/internal/pkg/config"
	"github.com/pharmacy/backoffice/pkg/logger"
)

const serviceName = "pharmacy-backoffice"

// @title Pharmacy Back Office API
// @version 1.0
// @description Authentication and role-based access for the pharmacy back office.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local runs read a .env file; in containers the environment is already set.
	_ = godotenv.Load(".env")

	cfg, err := config.Load(ctx)
	if err != nil {
		log := logger.Init(logger.Options{Service: serviceName})
		log.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	accounts := mongodb.NewAccountRepository(db)
	if err := accounts.EnsureIndexes(ctx); err != nil {
		return err
	}
	auditRepo := mongodb.NewAuditRepository(db)
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	readiness := map[string]handler.Pinger{"mongo": handler.MongoPinger(db)}

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = redisdb.NewFixedWindowLimiter(rdb, "rl:auth:", cfg.RateLimit.Limit, cfg.RateLimit.Window)
		readiness["redis"] = handler.RedisPinger(rdb)
	}

	// --- Audit trail ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditRepo, log)
	dispatcher.Start(workerCtx)
	defer func() {
		cancelWorkers()
		dispatcher.Wait()
	}()

	// --- Core services ---
	hasher, err := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := service.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	err = service.BootstrapAdmin(ctx, accounts, hasher, service.AdminSeed{
		Username: cfg.Bootstrap.Username,
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
		FullName: cfg.Bootstrap.FullName,
	}, log)
	if err != nil {
		return err
	}

	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return err
	}

	deps := api.Dependencies{
		Log:         log,
		Auth:        service.NewAuthService(accounts, hasher, codec, dispatcher, log),
		Accounts:    service.NewAccountService(accounts, hasher, dispatcher, log),
		Tokens:      codec,
		Audit:       dispatcher,
		Limiter:     limiter,
		Readiness:   readiness,
		CORSOrigins: cfg.CORSOrigins,

		TrustedProxies: proxies,
	}
	if cfg.Auth.RefreshIdentity {
		deps.Identity = accounts
	}

	e, err := api.NewRouter(deps)
	if err != nil {
		return err
	}

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting HTTP server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
