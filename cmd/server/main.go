// ==============================================================================
// PAYMENT REQUEST SERVICE MAIN - cmd/server/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"payreq/internal/attachment"
	"payreq/internal/bankdir"
	"payreq/internal/domain"
	"payreq/internal/handler"
	"payreq/internal/middleware"
	"payreq/internal/repository/postgres"
	"payreq/internal/submission"
	"payreq/internal/wizard"
	"payreq/pkg/config"
	"payreq/pkg/logger"
	"payreq/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("payreq-service")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Payment Request Service", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	// Database connection
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)

	// Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Redis connected", nil)

	// Bank directory: in-memory -> redis -> postgres -> external providers
	directoryRepo := postgres.NewBankDirectoryRepository(db)
	directoryCache := bankdir.NewRedisDirectoryCache(redisClient)
	directoryProviders := []bankdir.Provider{
		bankdir.NewHTTPDirectoryProvider(cfg.Directory.BaseURL, cfg.Directory.Timeout),
		bankdir.NewStaticDirectoryProvider(),
	}
	directory := bankdir.NewService(directoryRepo, directoryCache, directoryProviders, cfg.Directory.CacheTTL, log)

	// Attachment storage
	storageClient := attachment.NewHTTPStorageClient(cfg.Storage.UploadURL, cfg.Storage.AuthToken, cfg.Storage.Timeout)
	attachments := attachment.NewManager(storageClient, cfg.Storage.MaxFileSize, log)

	// Transaction submission
	submitter := submission.NewHTTPClient(cfg.Submission.BaseURL, cfg.Submission.Timeout)

	// Wizard sessions
	policy := wizard.Policy{
		AllowUnresolvedContinue: cfg.Wizard.AllowUnresolvedContinue,
		DomesticCurrencies:      make(map[domain.Currency]bool, len(cfg.Wizard.DomesticCurrencies)),
	}
	for _, c := range cfg.Wizard.DomesticCurrencies {
		policy.DomesticCurrencies[domain.Currency(c)] = true
	}
	sessions := wizard.NewManager(directory, submitter, policy, log)

	// Abandoned sessions are reaped on a fixed interval.
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n := sessions.Cleanup(cfg.Wizard.SessionTTL); n > 0 {
				log.Info("Expired wizard sessions removed", map[string]interface{}{"count": n})
			}
		}
	}()

	// Initialize handlers
	val := validator.New()
	wizardHandler := handler.NewWizardHandler(sessions, attachments, val, cfg.Storage.MaxFileSize, log)
	directoryHandler := handler.NewBankDirectoryHandler(directory, val, log)
	systemHandler := handler.NewSystemHandler(db, redisClient, log)

	// Setup router
	r := mux.NewRouter()

	// Middleware
	r.Use(middleware.CORS)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.BodyLimit(cfg.Storage.MaxFileSize + 64*1024))
	r.Use(middleware.NewRateLimiter(redisClient, 150, time.Minute).Limit)

	blacklist := middleware.NewRedisTokenBlacklist(redisClient)
	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)
	idemMW := middleware.NewIdempotencyMiddleware(redisClient, 24*time.Hour)

	// Health check routes (no auth)
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.Use(middleware.NewRateLimiter(redisClient, 60, time.Minute).Limit)

	api.HandleFunc("/bank-directory/swift/{code}", directoryHandler.LookupSwift).Methods("GET")
	api.HandleFunc("/bank-directory/iban/{iban}", directoryHandler.LookupIBAN).Methods("GET")

	api.HandleFunc("/wizard", wizardHandler.OpenSession).Methods("POST")

	sessionsRoutes := api.PathPrefix("/wizard/{id}").Subrouter()
	sessionsRoutes.HandleFunc("", wizardHandler.GetSession).Methods("GET")
	sessionsRoutes.HandleFunc("/currency", wizardHandler.SelectCurrency).Methods("POST")
	sessionsRoutes.HandleFunc("/fields", wizardHandler.SetFields).Methods("PATCH")
	sessionsRoutes.HandleFunc("/identifier", wizardHandler.SetIdentifier).Methods("POST")
	sessionsRoutes.HandleFunc("/resolution/skip", wizardHandler.SkipResolution).Methods("POST")
	sessionsRoutes.HandleFunc("/attachment", wizardHandler.UploadAttachment).Methods("POST")
	sessionsRoutes.HandleFunc("/advance", wizardHandler.Advance).Methods("POST")
	sessionsRoutes.HandleFunc("/edit", wizardHandler.EditBack).Methods("POST")
	sessionsRoutes.HandleFunc("/cancel", wizardHandler.Cancel).Methods("POST")

	// Submission is the one route that must never double-fire.
	submit := api.PathPrefix("/wizard/{id}/submit").Subrouter()
	submit.Use(idemMW.Require)
	submit.HandleFunc("", wizardHandler.Submit).Methods("POST")

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("Payment request service started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down payment request service...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Service forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Payment request service stopped gracefully", nil)
}
