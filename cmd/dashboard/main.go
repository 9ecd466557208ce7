// Package main запускает HTTP-сервер панели управления счетами.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/invoices-dashboard/internal/config"
	"github.com/mmeshcher/invoices-dashboard/internal/dashboard"
	"github.com/mmeshcher/invoices-dashboard/internal/handler"
	"github.com/mmeshcher/invoices-dashboard/internal/middleware"
	"github.com/mmeshcher/invoices-dashboard/internal/repository"
	"github.com/mmeshcher/invoices-dashboard/internal/service"
)

type storage interface {
	service.Repository
	dashboard.Lister
}

func openStorage(dsn string) (storage, error) {
	if dsn == "" {
		return repository.NewMemoryRepository(repository.DemoCustomers()...), nil
	}
	repo, err := repository.NewPostgresRepository(dsn)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := openStorage(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	if cfg.DatabaseURI == "" {
		sugar.Warn("DATABASE_URI is empty, using in-memory storage")
	}

	orch := dashboard.NewOrchestrator(repo, cfg.PageSize, logger)

	svc := service.NewService(repo, orch, service.NewBcryptHasher())
	defer svc.Close()

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := svc.EnsureUser(context.Background(), cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			sugar.Fatalw("admin bootstrap error", "error", err.Error())
		}
		sugar.Infow("admin user ready", "email", cfg.AdminEmail)
	}

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is empty, sessions will not survive a restart")
	}
	sessions := middleware.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	h := handler.NewHandler(svc, orch, logger, sessions)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting dashboard server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
