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
	"github.com/amiko-app/amiko/services/auth-service/internal/audit"
	"github.com/amiko-app/amiko/services/auth-service/internal/deletion"
	"github.com/amiko-app/amiko/services/auth-service/internal/handlers"
	"github.com/amiko-app/amiko/services/auth-service/internal/outbox"
	"github.com/amiko-app/amiko/services/auth-service/internal/sessions"
	"github.com/amiko-app/amiko/services/auth-service/internal/signup"
	"github.com/amiko-app/amiko/services/auth-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "auth-service")
	port, err := config.Port("PORT", "8081")
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
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var guard *signup.Guard
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL, signup guard disabled", "err", err)
		} else {
			guard = signup.NewGuard(redis.NewClient(opts), 30*time.Second)
		}
	}

	userRepo := storage.NewUserRepository(pool)
	auditRepo := audit.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	refreshRepo := sessions.NewRefreshRepository(pool)

	deleter := deletion.NewWorker(
		deletion.NewDBStore(pool, userRepo, refreshRepo),
		outboxRepo,
		logger,
		deletion.Config{
			MaxAttempts: config.Int("DELETION_MAX_ATTEMPTS", 5),
			BaseDelay:   500 * time.Millisecond,
		},
	)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:      config.String("KAFKA_BROKERS", ""),
		Topic:        config.String("KAFKA_AUTH_TOPIC", "amiko.auth.events"),
		PollInterval: 2 * time.Second,
		BatchSize:    50,
	})
	go outboxPublisher.Run(ctx)

	refreshTTL := time.Duration(config.Int("REFRESH_TTL_HOURS", 720)) * time.Hour
	signer := handlers.NewHS256Signer(jwtSecret)
	authHandler := handlers.NewAuthHandler(signer, pool, userRepo, auditRepo, outboxRepo, refreshRepo, guard, deleter, logger, refreshTTL)

	if err := startGrpcServer(ctx, logger, userRepo); err != nil {
		logger.Error("grpc server init failed", "err", err)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/v1/auth/me", authHandler.Me)
	mux.HandleFunc("PATCH /api/v1/auth/me/timezone", authHandler.UpdateTimezone)
	mux.HandleFunc("DELETE /api/v1/auth/me", authHandler.DeleteAccount)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "auth")
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
