package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CarlosDBayona/booking-hold-integrity/internal/adapter/handler"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/adapter/metrics"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/adapter/storage"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/domain"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/core/service"
	"github.com/CarlosDBayona/booking-hold-integrity/internal/port"
)

type config struct {
	httpAddr    string
	redisAddr   string
	mysqlDSN    string
	lockTTL     time.Duration
	retention   time.Duration
	workerCount int
	queueSize   int
}

func loadConfig() config {
	return config{
		httpAddr:    getenv("HTTP_ADDR", ":8080"),
		redisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		mysqlDSN:    getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/reservations?parseTime=true"),
		lockTTL:     time.Duration(getenvInt("LOCK_TTL_SECONDS", 900)) * time.Second,
		retention:   time.Duration(getenvInt("RESERVED_TTL_SECONDS", 86400)) * time.Second,
		workerCount: getenvInt("WORKER_COUNT", 4),
		queueSize:   getenvInt("QUEUE_SIZE", 10000),
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis holds the locks and consumed records.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis", zap.String("addr", cfg.redisAddr))

	// MySQL is the write-behind audit journal.
	db, err := sql.Open("mysql", cfg.mysqlDSN)
	if err != nil {
		logger.Fatal("failed to connect mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	journal := storage.NewMySQLJournal(db)
	if err := journal.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheusRecorder(registry)

	store := storage.NewRedisStore(rdb)
	locks := service.NewLockManager(store)
	reservations := service.NewReservationService(locks, store, service.Config{
		DefaultTTL: cfg.lockTTL,
		Retention:  cfg.retention,
		QueueSize:  cfg.queueSize,
		Metrics:    recorder,
		Logger:     logger,
	})

	// Journal worker pool.
	var wg sync.WaitGroup
	for i := 0; i < cfg.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			journalLoop(id, reservations.Journal(), journal, logger)
		}(i)
	}
	logger.Info("started journal workers", zap.Int("count", cfg.workerCount))

	httpHandler := handler.NewHTTPHandler(reservations, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/reservations/hold", httpHandler.Hold)
	mux.HandleFunc("/reservations/confirm", httpHandler.Confirm)
	mux.HandleFunc("/reservations/cancel", httpHandler.Cancel)
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.httpAddr,
		Handler: handler.RequestLogger(logger, mux),
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.httpAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	reservations.Close()
	wg.Wait()
	logger.Info("journal workers stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func journalLoop(id int, queue <-chan domain.ConsumedRecord, journal port.ReservationJournal, logger *zap.Logger) {
	for rec := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		// The consumed record in Redis stays authoritative; a failed insert
		// is logged and dropped, never retried into the protocol path.
		if err := journal.RecordReservation(ctx, rec); err != nil {
			logger.Error("failed to journal reservation",
				zap.Int("worker", id),
				zap.String("skuId", rec.SKUID),
				zap.Error(err),
			)
		}

		cancel()
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
