package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	appinv "github.com/cafe/backend/internal/application/inventory"
	"github.com/cafe/backend/internal/application/deduction"
	"github.com/cafe/backend/internal/domain/recipe"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/cafe/backend/internal/infrastructure/cache"
	"github.com/cafe/backend/internal/infrastructure/config"
	"github.com/cafe/backend/internal/infrastructure/logger"
	"github.com/cafe/backend/internal/infrastructure/persistence"
	"github.com/cafe/backend/internal/infrastructure/telemetry"
	"github.com/cafe/backend/internal/interfaces/messaging"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting deduction worker",
		zap.String("env", cfg.App.Env),
		zap.Duration("sweep_interval", cfg.Deduction.SweepInterval),
		zap.Int("max_attempts", cfg.Deduction.MaxAttempts),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()
	log.Info("database connected")

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to create meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("error shutting down meter provider", zap.Error(err))
		}
	}()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to create tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("error shutting down tracer provider", zap.Error(err))
		}
	}()

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Fatal("failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	store := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("error closing idempotency store", zap.Error(err))
		}
	}()

	stockRepo := persistence.NewGormIngredientStockRepository(db.DB)
	recipeRepo := persistence.NewGormRecipeRepository(db.DB)
	txRepo := persistence.NewGormInventoryTransactionRepository(db.DB)
	alertRepo := persistence.NewGormLowStockAlertRepository(db.DB)
	jobRepo := persistence.NewGormDeductionJobRepository(db.DB)

	var recorder deduction.Recorder = deduction.NopRecorder{}
	if meterProvider.IsEnabled() {
		deductionMetrics, err := telemetry.NewDeductionMetrics(meterProvider.Meter("cafe.deduction"), log)
		if err != nil {
			log.Fatal("failed to create deduction metrics", zap.Error(err))
		}
		deductionMetrics.StartPeriodicCollection(ctx, jobRepo, stockRepo, cfg.Telemetry.ExportInterval)
		defer deductionMetrics.Stop()
		recorder = deductionMetrics
	}

	guard := deduction.NewGuard(store, txRepo, jobRepo, shared.IdempotencyConfig{
		TTL:     cfg.Deduction.IdempotencyTTL,
		Enabled: true,
	}, log)
	ledger := appinv.NewLedger(persistence.NewGormTransactionScope(db.DB), stockRepo, txRepo, log)
	alerter := appinv.NewLowStockAlerter(alertRepo, log).
		WithNotifier(appinv.NewLoggingStockAlertNotifier(log))
	executor := deduction.NewExecutor(guard, recipe.NewResolver(recipeRepo, log), ledger, alerter, log).
		WithRecorder(recorder)

	coordinator := deduction.NewCoordinator(jobRepo, executor, coordinatorConfig(cfg.Deduction), log).
		WithNotifier(deduction.NewLoggingManualReviewNotifier(log)).
		WithRecorder(recorder)

	if err := coordinator.Start(ctx); err != nil {
		log.Fatal("failed to start coordinator", zap.Error(err))
	}

	consumerDone := make(chan error, 1)
	if cfg.Kafka.Enabled {
		consumer := messaging.NewPaymentConsumer(cfg.Kafka, coordinator, log)
		go func() { consumerDone <- consumer.Run(ctx) }()
		log.Info("payment consumer subscribed",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.String("group_id", cfg.Kafka.GroupID),
		)
	} else {
		log.Info("kafka disabled, orders must be enqueued by another trigger")
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down deduction worker")
	case err := <-consumerDone:
		// Run only returns early on a reader failure
		log.Error("payment consumer failed, shutting down", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := coordinator.Stop(shutdownCtx); err != nil {
		log.Warn("coordinator did not stop cleanly, in-flight jobs will be reclaimed as stale", zap.Error(err))
	}

	log.Info("deduction worker stopped")
}

// coordinatorConfig maps the deduction settings onto the coordinator
func coordinatorConfig(cfg config.DeductionConfig) deduction.CoordinatorConfig {
	return deduction.CoordinatorConfig{
		SweepInterval:    cfg.SweepInterval,
		BatchSize:        cfg.BatchSize,
		MaxAttempts:      cfg.MaxAttempts,
		StaleLockTimeout: cfg.StaleLockTimeout,
		MaxBackoff:       cfg.MaxBackoff,
		CleanupEnabled:   cfg.CleanupEnabled,
		CleanupRetention: cfg.CleanupRetention,
		CleanupInterval:  cfg.CleanupInterval,
	}
}
