package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karisazi/faq-chatbot/internal/bootstrap"
	"github.com/karisazi/faq-chatbot/internal/config"
	"github.com/karisazi/faq-chatbot/internal/core/domain"
	"github.com/karisazi/faq-chatbot/internal/observability/logging"
	"github.com/karisazi/faq-chatbot/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewJSONLogger("worker", "error").Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSourceIngested(ctx, func(handlerCtx context.Context, sourceID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if source, err := app.Sources.GetByID(processCtx, sourceID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(source.CreatedAt))
		}

		workerMetrics.StartSource()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, sourceID)
		workerMetrics.FinishSource("worker", time.Since(start), processErr)

		if processErr == nil {
			if source, err := app.Sources.GetByID(processCtx, sourceID); err == nil {
				workerMetrics.RecordIndexed("worker", string(domain.CategoryProductSales), source.ProductCount)
				workerMetrics.RecordIndexed("worker", string(domain.CategoryCustomerCorporate), source.CustomerCount)
			}
		}
		return processErr
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
