package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medrex/clinic-scheduling/internal/clinical"
	"github.com/medrex/clinic-scheduling/internal/gateway"
	"github.com/medrex/clinic-scheduling/internal/iam"
	"github.com/medrex/clinic-scheduling/internal/scheduling"
	"github.com/medrex/clinic-scheduling/pkg/config"
	"github.com/medrex/clinic-scheduling/pkg/database"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/monitoring"
	"github.com/medrex/clinic-scheduling/pkg/repository"
)

const (
	serviceName    = "scheduling-service"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.CreateSchema(ctx)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Failed to create database schema")
		}
	}

	// Monitoring
	metrics := monitoring.NewMetricsCollector(serviceName)
	tracing, err := monitoring.NewTracingManager(&monitoring.TracingConfig{
		Enabled:        cfg.Monitoring.TracingEnabled,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		JaegerEndpoint: cfg.Monitoring.JaegerEndpoint,
		Environment:    cfg.Monitoring.Environment,
		SamplingRate:   cfg.Monitoring.SamplingRate,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize tracing")
	}
	health := monitoring.NewHealthManager(serviceName, serviceVersion)
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	// Slot reservations
	var reserver interfaces.SlotReserver = scheduling.NoopReserver{}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer client.Close()

		reserver = scheduling.NewRedisReserver(client, cfg.Scheduling.ReservationTTL, logger)
		health.RegisterChecker("redis", monitoring.NewRedisHealthChecker(client))
		logger.WithField("addr", cfg.Redis.Addr()).Info("Slot reservations backed by Redis")
	} else {
		logger.Info("Redis disabled, relying on the appointment unique constraint")
	}

	// Services
	accounts := repository.NewAccountRepository(db, logger)
	iamService := iam.NewService(cfg, logger, accounts, accounts, metrics)

	schedulingRepo := scheduling.NewRepository(db, logger, metrics)
	schedulingService := scheduling.NewService(cfg, logger, schedulingRepo, reserver, iamService.Passwords(), metrics, tracing)

	clinicalService := clinical.NewService(repository.NewPrescriptionRepository(db, logger), logger)

	// HTTP
	server := gateway.NewService(cfg, logger, iamService.Tokens(), metrics, tracing, health,
		iam.NewHandlers(iamService, logger),
		scheduling.NewHandlers(schedulingService, logger, schedulingService.Location()),
		clinical.NewHandlers(clinicalService, logger),
	)

	// Start service in a goroutine
	go func() {
		logger.WithField("addr", cfg.Server.Addr()).Info("Starting Scheduling Service")
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start Scheduling Service")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Scheduling Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
	if err := tracing.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}
	logger.Info("Scheduling Service stopped")
}
