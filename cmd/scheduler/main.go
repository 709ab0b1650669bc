package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lessonlab/tutor_scheduler/internal/app"
	"github.com/lessonlab/tutor_scheduler/internal/config"
	"github.com/lessonlab/tutor_scheduler/internal/controller"
	"github.com/lessonlab/tutor_scheduler/internal/identity"
	"github.com/lessonlab/tutor_scheduler/internal/notify"
	"github.com/lessonlab/tutor_scheduler/internal/repository/postgres"
	"github.com/lessonlab/tutor_scheduler/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	ruleRepo := postgres.NewRuleRepository(pool, logger)
	bookingRepo := postgres.NewBookingRepository(pool, logger)
	users := identity.NewPostgresResolver(pool)

	var notifier notify.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		telegramNotifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram notifier", zap.Error(err))
		}
		notifier = telegramNotifier
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	availability := service.NewAvailabilityService(ruleRepo, logger)
	expander := service.NewExpanderService(ruleRepo, bookingRepo)
	bookings := service.NewBookingService(ruleRepo, bookingRepo, logger)
	scheduler := service.NewSchedulerService(availability, expander, bookings, users, notifier, logger)

	router := controller.NewRouter(scheduler, logger, cfg.Environment)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Starting scheduler API",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	logger.Info("Scheduler stopped")
}
