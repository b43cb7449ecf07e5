package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fitcore/fitcore-api/internal/config"
	"github.com/fitcore/fitcore-api/internal/domain/events"
	"github.com/fitcore/fitcore-api/internal/domain/payment"
	"github.com/fitcore/fitcore-api/internal/domain/program"
	"github.com/fitcore/fitcore-api/internal/domain/referral"
	"github.com/fitcore/fitcore-api/internal/domain/wallet"
	"github.com/fitcore/fitcore-api/internal/middleware"
	"github.com/fitcore/fitcore-api/internal/pkg/database"
	"github.com/fitcore/fitcore-api/internal/pkg/jwt"
	"github.com/fitcore/fitcore-api/internal/pkg/logger"
	"github.com/fitcore/fitcore-api/internal/pkg/response"
	"github.com/fitcore/fitcore-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting FitCore API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	receiptStore, err := storage.NewR2Storage(storage.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		BucketName:      cfg.R2BucketName,
		PublicURL:       cfg.R2PublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create R2 storage")
	}

	hub := events.NewHub(cfg.AllowedOrigins)

	// ---------- Repositories ----------
	paymentRepo := payment.NewRepository(db)
	walletRepo := wallet.NewRepository(db, cfg.WalletCurrency)
	referralRepo := referral.NewRepository(db)
	programRepo := program.NewRepository(db)

	// ---------- Services ----------
	paymentService := payment.NewService(db, paymentRepo, walletRepo, referralRepo, redis, hub)
	walletService := wallet.NewService(db, walletRepo, receiptStore, hub, redis)

	// ---------- Handlers ----------
	paymentHandler := payment.NewHandler(paymentService)
	walletHandler := wallet.NewHandler(walletService)
	programHandler := program.NewHandler(programRepo, paymentService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{"message": "pong"})
		})

		// WebSocket settlement feed for admin consoles. Browsers cannot set
		// headers on websocket dials, so the token rides a query param.
		r.Get("/admin/events", func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			authMiddleware(middleware.RequireAdmin()(http.HandlerFunc(hub.Serve))).ServeHTTP(w, r)
		})

		r.Mount("/programs", programHandler.Routes(authMiddleware))
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.With(authMiddleware).Post("/receipts/presign", walletHandler.PresignReceipt)
		r.Mount("/my/payments", paymentHandler.MemberRoutes(authMiddleware))

		r.Mount("/payments", paymentHandler.AdminRoutes(authMiddleware))
		r.Mount("/wallet-transactions", walletHandler.AdminRoutes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
