package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/app"
	"github.com/qh20812/Edu-Core-Server/internal/auth"
	"github.com/qh20812/Edu-Core-Server/internal/cache"
	"github.com/qh20812/Edu-Core-Server/internal/config"
	"github.com/qh20812/Edu-Core-Server/internal/notify"
	"github.com/qh20812/Edu-Core-Server/internal/repository"
	"github.com/qh20812/Edu-Core-Server/internal/service"
	"github.com/qh20812/Edu-Core-Server/internal/transport/httpapi"
)

const (
	notifyWorkers = 4
	notifyBuffer  = 256
	shutdownGrace = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(app.LogOptions{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Service:     cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting server",
		zap.Bool("env_file", cfg.EnvFileLoaded),
		zap.String("addr", cfg.HTTPAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to reach database", zap.Error(err))
	}

	if cfg.MigrationsAuto {
		migrator, err := app.NewMigrator(pool, logger)
		if err != nil {
			logger.Fatal("Failed to create migrator", zap.Error(err))
		}
		if err := migrator.Run(ctx); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		if err := migrator.Close(); err != nil {
			logger.Warn("Failed to close migrator", zap.Error(err))
		}
	}

	store := repository.NewStore(pool, logger)

	c := cache.New(ctx, cfg.RedisURL, logger)

	var relay notify.Dispatcher = notify.NewLogDispatcher(logger)
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramDispatcher(cfg.TelegramToken, store.Users, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram relay", zap.Error(err))
		}
		go tg.Start(ctx)
		relay = tg
	}
	notifier := notify.NewAsync(relay, notifyWorkers, notifyBuffer, logger)

	deps := service.Deps{
		Store:    store,
		Cache:    c,
		Notifier: notifier,
		Logger:   logger,
		CacheTTL: cfg.CacheTTL,
	}
	tenants := service.NewTenantService(deps)
	exams := service.NewExamService(deps)
	svc := httpapi.Services{
		Tenants:     tenants,
		Users:       service.NewUserService(deps, tenants),
		Subjects:    service.NewSubjectService(deps),
		Classes:     service.NewClassService(deps),
		Questions:   service.NewQuestionService(deps),
		Exams:       exams,
		Assignments: service.NewAssignmentService(deps, exams),
		Submissions: service.NewSubmissionService(deps),
	}

	server := httpapi.New(svc, httpapi.Config{
		Tokens: auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Logger: logger,
	})

	var sweeper app.Sweeper
	if m, ok := c.(*cache.Memory); ok {
		sweeper = m
	}
	scheduler := app.NewScheduler(sweeper, app.DefaultSweepInterval, logger)
	scheduler.Start(ctx)

	go func() {
		if err := server.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	scheduler.Stop()
	notifier.Close()
	if err := c.Close(); err != nil {
		logger.Warn("Failed to close cache", zap.Error(err))
	}
	pool.Close()

	logger.Info("Server stopped")
}
