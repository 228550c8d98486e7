// Command api serves the event ticketing HTTP API.
//
// @title Event Ticketing API
// @version 1.0
// @description Event listing, bookings and reviews.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventticketing/config"
	_ "eventticketing/docs"
	"eventticketing/internal/adapters/auth"
	"eventticketing/internal/adapters/email"
	httpdelivery "eventticketing/internal/delivery/http"
	"eventticketing/internal/delivery/http/controllers"
	"eventticketing/internal/domain"
	"eventticketing/internal/repository/badgerstore"
	"eventticketing/internal/repository/postgres"
	"eventticketing/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("close store", "err", err)
		}
	}()

	// 2. Adapters
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokens := auth.NewJWT(cfg.JWTSecret)

	// 3. Services
	authService := services.NewAuthService(store, hasher, tokens, emailService, logger, services.AuthConfig{
		TokenExpiry:      cfg.JWTExpiry,
		AllowAdminSignUp: cfg.AllowAdminSignUp,
		Timeout:          cfg.OperationTimeout,
	})
	participation := services.NewParticipationService(store, hasher, emailService, logger, cfg.OperationTimeout)
	reviews := services.NewReviewService(store, logger, cfg.ReviewRequirePastEvent, cfg.OperationTimeout)
	queries := services.NewEventQueryService(store, cfg.OperationTimeout)

	// 4. HTTP
	router := httpdelivery.NewRouter(httpdelivery.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		AuthRateLimit:  cfg.LoginRateLimit,
		AuthRateWindow: cfg.LoginRateWindow,
	}, httpdelivery.Controllers{
		Auth:   controllers.NewAuthController(logger, authService),
		Events: controllers.NewEventController(logger, queries, participation, reviews),
		Users:  controllers.NewUserController(logger, queries, participation, reviews),
	}, tokens, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "store", cfg.StoreDriver, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore opens the configured backend and returns it with its closer.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreBadger:
		db, err := badgerstore.Open(cfg.BadgerDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger: %w", err)
		}
		logger.Info("opened badger store", "dir", cfg.BadgerDir)
		return badgerstore.NewStore(db, cfg.BadgerTxMaxAttempts), db.Close, nil
	default:
		db, err := sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.Migrate(pingCtx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return postgres.NewStore(db, cfg.TxMaxAttempts), db.Close, nil
	}
}
