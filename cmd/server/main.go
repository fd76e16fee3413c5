package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parcelmatch-service/internal/domain/repository"
	"parcelmatch-service/internal/infrastructure/config"
	"parcelmatch-service/internal/infrastructure/persistence"
	mongoRepo "parcelmatch-service/internal/interface/repository"
	"parcelmatch-service/internal/interface/telegram"
	"parcelmatch-service/internal/usecase"
	"parcelmatch-service/pkg/logger"
	"parcelmatch-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	// Create logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Starting Parcelmatch Service", "version", cfg.AppVersion)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	db := persistence.GetDatabase(mongoClient, cfg.MongoDB)

	// Airport reference table is optional display enrichment
	var airportRepository repository.AirportRepository
	if cfg.PostgresURI != "" {
		gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		airportRepository = mongoRepo.NewGormAirportRepository(gormDB)
	} else {
		log.Warn("POSTGRES_DSN not set, airport name enrichment disabled")
	}

	// Set up repositories
	requestRepository := mongoRepo.NewMongoRequestRepository(db)
	controlRepository := mongoRepo.NewMongoUserControlRepository(db)
	sessionRepository := mongoRepo.NewMongoSessionRepository(db)
	authRepository := mongoRepo.NewMongoAuthSessionRepository(db)

	// Set up Telegram transport
	transport, err := telegram.New(cfg.TelegramToken, log)
	if err != nil {
		log.Fatal("Failed to create Telegram transport", "error", err)
	}

	// Set up usecases
	m := metrics.NewMetrics("parcelmatch")
	formatter := usecase.NewFormatter(airportRepository, log)
	matcher := usecase.NewMatcher(requestRepository, transport, formatter, cfg.ModerationChatID, log, m)
	moderation := usecase.NewModeration(requestRepository, transport, matcher, formatter, cfg.ModerationChatID, log, m)
	flow := usecase.NewSubmissionFlow(sessionRepository, requestRepository, transport, formatter, cfg.ModerationChatID, log, m)
	gate := usecase.NewGate(controlRepository, requestRepository, transport, cfg.ModerationChatID, log)
	relay := usecase.NewRelay(requestRepository, transport, cfg.ModerationChatID, log)

	dispatcher := usecase.NewDispatcher(
		flow, moderation, matcher, gate, relay,
		sessionRepository, requestRepository, authRepository, transport,
		cfg.ModerationChatID, cfg.ModeratorIDs, cfg.ModeratorSecret,
		log, m,
	)

	// Start the update loop in a goroutine
	go transport.Run(ctx, dispatcher.HandleEvent)

	// Set up HTTP server for metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop the update loop

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Parcelmatch Service stopped")
}
