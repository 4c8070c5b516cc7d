package main

import (
	"context"
	"net/http"
	"time"

	"github.com/amiko-app/amiko/libs/config"
	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/libs/httpx"
	"github.com/amiko-app/amiko/libs/kafkax"
	otelx "github.com/amiko-app/amiko/libs/otel"
	"github.com/amiko-app/amiko/libs/runtime"
	"github.com/amiko-app/amiko/services/booking-service/internal/availability"
	"github.com/amiko-app/amiko/services/booking-service/internal/handlers"
	"github.com/amiko-app/amiko/services/booking-service/internal/outbox"
	"github.com/amiko-app/amiko/services/booking-service/internal/profile"
	"github.com/amiko-app/amiko/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	scheduleRepo := storage.NewScheduleRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	var profileProvider profile.Provider
	if grpcProvider, err := profile.NewGRPCProvider(config.String("AUTH_GRPC_ADDR", "")); err != nil {
		logger.Error("profile grpc client init failed; using db lookup", "err", err)
		profileProvider = profile.NewDBProvider(pool)
	} else if grpcProvider != nil {
		profileProvider = grpcProvider
	} else {
		profileProvider = profile.NewDBProvider(pool)
	}

	resolver := availability.NewResolver(scheduleRepo, profileProvider, logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:      config.String("KAFKA_BROKERS", ""),
		Topic:        config.String("KAFKA_BOOKING_TOPIC", "amiko.booking.events"),
		PollInterval: 2 * time.Second,
		BatchSize:    50,
	})
	go outboxPublisher.Run(ctx)

	slotsHandler := handlers.NewSlotsHandler(resolver, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, logger)
	bookingHandler := handlers.NewBookingHandler(bookingRepo, scheduleRepo, outboxRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("GET /api/v1/partners/{partnerID}/available-slots", slotsHandler.List)
	mux.HandleFunc("POST /api/v1/schedules", scheduleHandler.CreateOneOff)
	mux.HandleFunc("GET /api/v1/schedules", scheduleHandler.ListOneOff)
	mux.HandleFunc("DELETE /api/v1/schedules/{scheduleID}", scheduleHandler.DeleteOneOff)
	mux.HandleFunc("POST /api/v1/recurring-schedules", scheduleHandler.CreateRecurring)
	mux.HandleFunc("GET /api/v1/recurring-schedules", scheduleHandler.ListRecurring)
	mux.HandleFunc("PATCH /api/v1/recurring-schedules/{scheduleID}", scheduleHandler.SetRecurringActive)
	mux.HandleFunc("POST /api/v1/bookings", bookingHandler.Create)
	mux.HandleFunc("GET /api/v1/bookings", bookingHandler.List)
	mux.HandleFunc("POST /api/v1/bookings/{bookingID}/cancel", bookingHandler.Cancel)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
