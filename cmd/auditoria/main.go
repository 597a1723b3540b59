package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"

	"github.com/cozinhalabs/auditoria/internal/audit"
	"github.com/cozinhalabs/auditoria/internal/config"
	"github.com/cozinhalabs/auditoria/internal/handlers"
	"github.com/cozinhalabs/auditoria/internal/logging"
	"github.com/cozinhalabs/auditoria/internal/middleware"
	"github.com/cozinhalabs/auditoria/internal/permissions"
	"github.com/cozinhalabs/auditoria/internal/registry"
	"github.com/cozinhalabs/auditoria/internal/repository"
	"github.com/cozinhalabs/auditoria/internal/server"
	"github.com/cozinhalabs/auditoria/internal/service"
	"github.com/cozinhalabs/auditoria/internal/snapshot"
	"github.com/cozinhalabs/auditoria/internal/tokens"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)
	log := logger.With(logging.Service("auditoria"))

	repo, cleanup, err := buildRepository(cfg, log)
	if err != nil {
		log.WithContext(context.Background()).Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	reg := registry.Default()
	if cfg.Audit.RegistryPath != "" {
		if err := reg.LoadFile(cfg.Audit.RegistryPath); err != nil {
			log.WithContext(context.Background()).Error("failed to load resource registry", "error", err)
			os.Exit(1)
		}
	}

	var grantCache *permissions.GrantCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		grantCache = permissions.NewGrantCache(client, cfg.Redis.GrantTTL)
	}

	perms := permissions.NewService(repo, grantCache, reg.Screens())
	tokenGen := tokens.NewTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	recorder := audit.NewRecorder(repo)
	snap := snapshot.NewAccessor(repo, reg)

	auditSvc := service.NewAuditService(repo, cfg.Audit.StatsWindow, cfg.Audit.ExportLimit)
	userSvc := service.NewUserService(repo, perms)

	authmw := middleware.NewAuthMiddleware(tokenGen, perms)
	interceptor := middleware.NewInterceptor(recorder, snap, reg)

	router := server.NewRouter(server.Handlers{
		Auth:       handlers.NewAuthHandler(userSvc, tokenGen, recorder, logger),
		Users:      handlers.NewUsersHandler(userSvc, recorder, logger),
		Resources:  handlers.NewResourcesHandler(repo, reg, logger),
		Permissoes: handlers.NewPermissoesHandler(perms, userSvc, logger),
		Audit:      handlers.NewAuditHandler(auditSvc, cfg.Audit, logger),
	}, authmw, interceptor)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithContext(context.Background()).Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithContext(context.Background()).Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.WithContext(context.Background()).Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithContext(context.Background()).Error("shutdown failed", "error", err)
	}
}

// buildRepository picks the storage backend. Postgres runs pending
// migrations before the server accepts traffic; the in-memory backend is
// for local development and tests.
func buildRepository(cfg *config.Config, log *logging.Logger) (repository.Repository, func(), error) {
	if cfg.Database.Type != "postgres" {
		return repository.NewInMemoryRepository(), func() {}, nil
	}

	connString := cfg.Database.Postgres.ConnString()
	if err := runMigrations(cfg.Audit.MigrationsDir, connString); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, err := repository.NewPostgresRepository(ctx, connString)
	if err != nil {
		return nil, nil, err
	}
	log.WithContext(context.Background()).Info("connected to postgres", "host", cfg.Database.Postgres.Host)
	return repo, repo.Close, nil
}

func runMigrations(dir, connString string) error {
	m, err := migrate.New("file://"+dir, connString)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
