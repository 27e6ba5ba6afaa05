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

	"github.com/joho/godotenv"

	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/cmd/server/config"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/activity"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/adapters/httpapi"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/bus"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/compensator"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/observability"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/realtime"
	"github.com/error505/Saga-Distributed-Transactions-Pattern-on-Azure/internal/saga"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context) error {
	sagaCfg, err := config.LoadSaga()
	if err != nil {
		return err
	}
	httpCfg, err := config.LoadHTTP()
	if err != nil {
		return err
	}

	store, cleanupStore, err := buildRecordStore(ctx, log.Printf)
	if err != nil {
		return err
	}
	defer cleanupStore()

	sagaBus, cleanupBus, err := buildSagaBus(ctx, sagaCfg)
	if err != nil {
		return err
	}
	defer cleanupBus()

	metrics := observability.NewMetrics()
	hub := realtime.NewHub()
	go hub.Run(ctx.Done())

	activityStep := activity.NewStep(store)
	compensationStep := compensator.NewStep(store)
	activityHandler := activity.NewHandler(activityStep, log.Printf)
	compensationHandler := compensator.NewHandler(compensationStep, log.Printf)

	registry := bus.NewRegistry()
	if err := registry.Register(sagaCfg.ActivityChannel, instrumentHandler(metrics, "activity", activityHandler.Handle)); err != nil {
		return err
	}
	if err := registry.Register(sagaCfg.CompensationChannel, instrumentHandler(metrics, "compensation", compensationHandler.Handle)); err != nil {
		return err
	}

	notifier := saga.MultiNotifier{
		realtime.NewSagaNotifier(hub),
		outcomeRecorder{metrics: metrics},
	}
	orchestrator := saga.NewOrchestrator(
		activity.NewClient(sagaCfg.ActivityURL, &http.Client{Timeout: sagaCfg.ActivityTimeout}),
		bus.NewCompensationPublisher(sagaBus, sagaCfg.CompensationChannel),
		notifier,
		sagaCfg.ActivityTimeout,
		log.Printf,
	)

	api := httpapi.NewServer(orchestrator, activityStep, hub, metrics, log.Printf)
	limiter := newHTTPRateLimiter(httpCfg.RateLimitInterval, httpCfg.RateLimitBurst, metrics.AddRateLimitWait)

	srv := &http.Server{
		Addr:    httpCfg.Addr,
		Handler: rateLimitMiddleware(limiter, api.Handler()),
	}

	obsSrv, err := startObservabilityServer(metrics)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		if err := sagaBus.Run(ctx, registry); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		log.Printf("saga API listening on %s", httpCfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if obsSrv != nil {
			_ = obsSrv.Shutdown(shutdownCtx)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func startObservabilityServer(metrics *observability.Metrics) (*http.Server, error) {
	cfg, err := config.LoadObservability()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(metrics))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("observability server error: %v", err)
		}
	}()

	return srv, nil
}

// outcomeRecorder counts saga outcomes in the metrics registry.
type outcomeRecorder struct {
	metrics *observability.Metrics
}

func (r outcomeRecorder) SagaFinished(orderID string, outcome saga.SagaOutcome, message string) {
	r.metrics.CountOutcome(string(outcome))
}

// instrumentHandler wraps a bus handler with per-handler counters.
func instrumentHandler(metrics *observability.Metrics, name string, next bus.HandlerFunc) bus.HandlerFunc {
	return func(ctx context.Context, raw []byte) error {
		err := next(ctx, raw)
		switch {
		case err == nil:
			metrics.HandlerProcessed(name)
		case saga.IsValidationError(err):
			metrics.HandlerDiscarded(name)
		default:
			metrics.HandlerFailed(name)
		}
		return err
	}
}
