package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	contesthub "contest_hub"
	"contest_hub/internal/api"
	"contest_hub/internal/app/service"
	"contest_hub/internal/app/worker"
	"contest_hub/internal/common/security"
	"contest_hub/internal/domain/repository"
	"contest_hub/internal/domain/repository/memory"
	"contest_hub/internal/platform/config"
	"contest_hub/internal/platform/database"
	"contest_hub/internal/platform/gateway"
	"contest_hub/internal/platform/logger"
	"contest_hub/internal/platform/queue"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type repositories struct {
	users       repository.UserRepository
	contests    repository.ContestRepository
	submissions repository.SubmissionRepository
	payments    repository.PaymentRepository
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize JWT
	security.InitJWT([]byte(cfg.JWTSecret), cfg.JWTExp())

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	// 4. Initialize Store
	var repos repositories
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		repos = repositories{store.Users(), store.Contests(), store.Submissions(), store.Payments()}
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		if cfg.RunMigrations {
			migrationsFS, err := fs.Sub(contesthub.MigrationsFS, "migrations")
			if err != nil {
				logger.Fatal("failed to open embedded migrations", zap.Error(err))
			}
			if err := database.RunMigrations(cfg.DBConnStr(), migrationsFS); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		db, err := database.Connect(startCtx, cfg.DBConnStr())
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() {
			db.Close()
			logger.Info("database connection closed")
		}()
		repos = repositories{
			users:       repository.NewPgUserRepository(db),
			contests:    repository.NewPgContestRepository(db),
			submissions: repository.NewPgSubmissionRepository(db),
			payments:    repository.NewPgPaymentRepository(db),
		}
	}

	// 5. Initialize Redis (reconcile queue and locks)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = queue.Connect(startCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			if cfg.StoreDriver != config.StoreDriverMemory {
				logger.Fatal("failed to connect to redis", zap.Error(err))
			}
			logger.Warn("redis unavailable, reconcile worker disabled", zap.Error(err))
			rdb = nil
		} else {
			defer func() {
				rdb.Close()
				logger.Info("redis connection closed")
			}()
		}
	}

	// 6. Initialize Payment Gateway
	var gw gateway.Gateway
	switch cfg.GatewayDriver {
	case config.GatewayDriverSandbox:
		logger.Warn("using sandbox gateway, sessions settle without payment")
		gw = gateway.NewSandbox(cfg.CheckoutSuccessURL, true)
	default:
		gw = gateway.NewStripe(cfg.StripeSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, cfg.GatewayTimeout)
	}

	// 7. Initialize Services
	var reconcileQueue *queue.List
	var enqueuer service.ReconcileEnqueuer
	if rdb != nil {
		reconcileQueue = queue.NewList(rdb, cfg.ReconcileQueueName)
		enqueuer = reconcileQueue
	}
	contestService := service.NewContestService(repos.contests)
	reconcileService := service.NewReconcileService(repos.contests, repos.submissions)
	services := api.Services{
		Auth:        service.NewAuthService(repos.users, cfg.AdminEmails),
		Contests:    contestService,
		Settlement:  service.NewSettlementService(repos.contests, repos.payments, gw, enqueuer, cfg.PaymentCurrency),
		Submissions: service.NewSubmissionService(repos.contests, repos.submissions, repos.payments),
		Winners:     service.NewWinnerService(contestService, repos.contests, repos.submissions),
		Reconcile:   reconcileService,
	}

	// 8. Initialize Reconcile Worker (as a goroutine)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if reconcileQueue != nil {
		reconcileWorker := worker.NewReconcileWorker(reconcileQueue, queue.NewLocker(rdb), reconcileService, worker.Options{
			LockKey:  cfg.ReconcileLockKey,
			LockTTL:  cfg.ReconcileLockTTL(),
			Interval: cfg.ReconcileInterval,
		})
		go func() {
			defer close(workerDone)
			reconcileWorker.Start(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	// 9. Initialize Router & HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(services, cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.APIPort), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
	}

	logger.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("reconcile worker did not stop in time")
	}
	logger.Info("server and worker stopped gracefully")
}
