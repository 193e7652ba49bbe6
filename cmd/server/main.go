package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/database"
	"github.com/stemsi/exstem-portal/internal/handler"
	"github.com/stemsi/exstem-portal/internal/live"
	"github.com/stemsi/exstem-portal/internal/logger"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/router"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/validator"
	"github.com/stemsi/exstem-portal/internal/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("live_backend", cfg.LiveBackend).
		Bool("enforce_exemptions", cfg.EnforceExemptions).
		Msg("Starting ExStem Portal")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// ─── Live Registry ─────────────────────────────────────────────────
	var registry live.Registry
	switch cfg.LiveBackend {
	case config.LiveBackendMemory:
		registry = live.NewMemoryRegistry()
	default:
		registry = live.NewRedisRegistry(rdb, log)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo)
	adminService := service.NewAdminService(adminRepo)
	examService := service.NewExamService(examRepo, log)
	resultService := service.NewResultService(resultRepo, log)
	liveService := service.NewLiveService(registry, examService, cfg.ClearLiveOnAdminLogin, log)
	attemptService := service.NewAttemptService(service.AttemptServiceConfig{
		Registry:      registry,
		Exams:         examService,
		Policy:        live.PolicyFor(cfg.EnforceExemptions),
		Sink:          service.NewSubmissionQueue(rdb),
		Sessions:      authService,
		TimerInterval: cfg.TimerInterval,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	resultHandler := handler.NewResultHandler(resultService, log)
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, studentService, adminService, liveService, attemptService, log),
		StudentPortal: handler.NewStudentPortalHandler(liveService, attemptService, resultHandler, log),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService, authService, attemptService, log),
		Exam:          handler.NewExamHandler(examService, log),
		Live:          handler.NewLiveHandler(liveService, attemptService, log),
		Result:        resultHandler,
		WS:            handler.NewWSHandler(attemptService, liveService, log, cfg.AllowedOrigins),
		System:        handler.NewSystemHandler(pool, rdb, liveService, attemptService, log),
	}

	authLimiter := middleware.NewRateLimiter(rdb, "login", cfg.LoginRateLimit, cfg.LoginRateWindow, log)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, authLimiter, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Run ───────────────────────────────────────────────────────────
	// The worker gets its own context so it keeps draining the queue while
	// attempts are torn down during shutdown.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.NewSubmissionWorker(submissionRepo, rdb, log).Start(workerCtx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")

		// 1. Stop accepting new HTTP requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		// 2. In-memory attempts cannot survive the process.
		if n := attemptService.AbandonAll(); n > 0 {
			log.Warn().Int("abandoned", n).Msg("Abandoned running attempts")
		}

		// 3. Stop the worker; it flushes its last batch before returning.
		stopWorker()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
