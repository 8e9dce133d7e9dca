package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/clinicpay/payment-engine/internal/config"
	"github.com/clinicpay/payment-engine/internal/gateway"
	"github.com/clinicpay/payment-engine/internal/metrics"
	"github.com/clinicpay/payment-engine/internal/repository"
	"github.com/clinicpay/payment-engine/internal/service"
)

func main() {
	log.Println("Starting payment scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var paymentRepo repository.PaymentRepository
	var planRepo repository.PlanRepository

	switch cfg.Storage.Backend {
	case "postgres":
		db, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		paymentRepo = repository.NewPostgresPaymentRepository(db)
		planRepo = repository.NewPostgresPlanRepository(db)
	default:
		// With the memory backend the scheduler only sees its own process
		// state; it exists for the postgres deployment.
		paymentRepo = repository.NewMemoryPaymentRepository()
		planRepo = repository.NewMemoryPlanRepository()
	}

	gw := gateway.NewSimulator(
		cfg.Gateway.Provider,
		cfg.Gateway.Latency,
		cfg.Gateway.FailureRate,
		cfg.Gateway.Seed,
	)
	scorer := service.NewRiskScorer(cfg.Business.BlockThreshold, cfg.Gateway.Seed)

	paymentService := service.NewPaymentService(
		paymentRepo, planRepo, gw, scorer, nil, cfg, metrics.Nop(),
	)

	c := cron.New(cron.WithSeconds())
	setupCronJobs(c, paymentService)

	c.Start()
	log.Println("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, paymentService *service.PaymentService) {
	// Hourly job to expire payments stuck in pending/processing
	_, err := c.AddFunc("0 0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		expired, err := paymentService.ExpireStalePayments(ctx)
		if err != nil {
			log.Printf("Error expiring stale payments: %v", err)
			return
		}
		log.Printf("Expired %d stale payments", expired)
	})
	if err != nil {
		log.Printf("Error scheduling payment expiry job: %v", err)
	}

	// Daily job to flag overdue installments (runs at midnight)
	_, err = c.AddFunc("0 0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		marked, err := paymentService.MarkOverdueInstallments(ctx)
		if err != nil {
			log.Printf("Error marking overdue installments: %v", err)
			return
		}
		log.Printf("Marked %d installments overdue", marked)
	})
	if err != nil {
		log.Printf("Error scheduling overdue installment job: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
