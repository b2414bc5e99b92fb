package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/apiclient"
	"github.com/stemsi/testcenter/internal/config"
	"github.com/stemsi/testcenter/internal/database"
	"github.com/stemsi/testcenter/internal/handler"
	"github.com/stemsi/testcenter/internal/logger"
	"github.com/stemsi/testcenter/internal/repository"
	"github.com/stemsi/testcenter/internal/router"
	"github.com/stemsi/testcenter/internal/service"
	"github.com/stemsi/testcenter/internal/validator"
	"github.com/stemsi/testcenter/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("backend", cfg.BackendURL).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Test Center")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	answerCache := repository.NewAnswerCacheRepository(rdb, cfg.AnswerCacheTTL)
	eventBus := repository.NewEventBus(rdb)
	auditQueue := repository.NewAuditQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	testCenter := service.NewTestCenterService(answerCache, eventBus, auditQueue, service.Options{
		TickInterval:  cfg.TickInterval,
		SubmitTimeout: cfg.SubmitTimeout,
	}, log)

	// Every candidate gets a backend client authenticated with their own
	// token; connections are pooled across candidates.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	newCandidate := func(token string) service.Candidate {
		client := apiclient.New(apiclient.Config{
			BaseURL:   cfg.BackendURL,
			Timeout:   cfg.BackendTimeout,
			Transport: transport,
		}, apiclient.StaticToken(token), log)
		return service.Candidate{Key: apiclient.CandidateKey(token), API: client}
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		TestCenter: handler.NewTestCenterHandler(testCenter, log),
		WS:         handler.NewWSHandler(testCenter, eventBus, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	auditWorker := worker.NewAuditWorker(pool, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		auditWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, newCandidate, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop countdowns. Attempts stay resumable on the backend and their
	// answers stay in the autosave cache.
	testCenter.Shutdown()

	// 3. Stop background workers and wait for the audit buffer to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
