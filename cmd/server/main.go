package main

import (
	"database/sql"
	"net/http"
	"time"

	"sslcommerz-gateway/internal/admin"
	"sslcommerz-gateway/internal/config"
	"sslcommerz-gateway/internal/db"
	"sslcommerz-gateway/internal/logger"
	"sslcommerz-gateway/internal/metrics"
	"sslcommerz-gateway/internal/middleware"
	"sslcommerz-gateway/internal/payment"
	"sslcommerz-gateway/internal/payment/webhook"
	"sslcommerz-gateway/internal/sslcommerz"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(addr string, handler http.Handler) error {
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		}
		return srv.ListenAndServe()
	}
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	router := newServer(cfg, database)

	logger.L().Info("SSLCommerz gateway listening",
		zap.String("port", cfg.AppPort),
		zap.Bool("sandbox", cfg.Sandbox),
	)
	return startServerFunc(":"+cfg.AppPort, router)
}

func newServer(cfg *config.Config, database *sql.DB) http.Handler {
	metrics.MustRegister()

	gateway := sslcommerz.NewAdapter(cfg.Credentials())
	paymentRepo := payment.NewRepository(database)
	paymentSvc := payment.NewService(paymentRepo, gateway, cfg.NotifyURL, cfg.ReturnURL)

	return setupRouter(
		webhook.NewWebhookHandler(paymentSvc),
		admin.NewHandler(paymentSvc),
		cfg,
	)
}

func setupRouter(wh *webhook.Handler, ah *admin.Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.InternalSecretKey))
		r.Post("/webhook/sslcommerz/ipn", wh.NotificationHandler)
		r.Get("/payments/return", wh.ReturnHandler)
		r.Post("/payments/return", wh.ReturnHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperator(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.InternalSecretKey))
		r.Post("/payments/checkout", ah.CheckoutHandler)
		r.Post("/payments/refunds", ah.RefundHandler)
		r.Post("/settings/validate", ah.ValidateSettingsHandler)
	})

	return r
}
