package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicpay/payment-engine/internal/config"
	"github.com/clinicpay/payment-engine/internal/gateway"
	"github.com/clinicpay/payment-engine/internal/handler"
	"github.com/clinicpay/payment-engine/internal/metrics"
	"github.com/clinicpay/payment-engine/internal/repository"
	"github.com/clinicpay/payment-engine/internal/service"
	"github.com/clinicpay/payment-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var db *sqlx.DB
	var paymentRepo repository.PaymentRepository
	var planRepo repository.PlanRepository

	switch cfg.Storage.Backend {
	case "postgres":
		db, err = initDB(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		paymentRepo = repository.NewPostgresPaymentRepository(db)
		planRepo = repository.NewPostgresPlanRepository(db)
	default:
		paymentRepo = repository.NewMemoryPaymentRepository()
		planRepo = repository.NewMemoryPlanRepository()
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	gw := gateway.NewSimulator(
		cfg.Gateway.Provider,
		cfg.Gateway.Latency,
		cfg.Gateway.FailureRate,
		cfg.Gateway.Seed,
	)
	scorer := service.NewRiskScorer(cfg.Business.BlockThreshold, cfg.Gateway.Seed)

	paymentService := service.NewPaymentService(
		paymentRepo, planRepo, gw, scorer, redisClient, cfg, paymentMetrics,
	)

	paymentHandler := handler.NewPaymentHandler(paymentService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(paymentHandler, healthHandler, registry)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Payment engine starting on %s (storage=%s)", server.Addr, cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func setupRoutes(paymentHandler *handler.PaymentHandler, healthHandler *handler.HealthHandler, registry *prometheus.Registry) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)
	router.Use(response.CORSMiddleware)

	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// /payments/stats must register before /payments/{paymentId}
	api.HandleFunc("/payments/stats", paymentHandler.GetStats).Methods("GET")
	api.HandleFunc("/payments", paymentHandler.ProcessPayment).Methods("POST")
	api.HandleFunc("/payments", paymentHandler.ListPayments).Methods("GET")
	api.HandleFunc("/payments/{paymentId}", paymentHandler.GetPayment).Methods("GET")
	api.HandleFunc("/payments/{paymentId}/refunds", paymentHandler.RefundPayment).Methods("POST")
	api.HandleFunc("/installment-plans", paymentHandler.CreateInstallmentPlan).Methods("POST")
	api.HandleFunc("/installment-plans/{planId}", paymentHandler.GetInstallmentPlan).Methods("GET")
	api.HandleFunc("/fraud/check", paymentHandler.CheckFraud).Methods("POST")

	return router
}
