package main

import (
	"context"
	"net/http"
	"time"

	"github.com/amiko-app/amiko/libs/config"
	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/libs/httpx"
	otelx "github.com/amiko-app/amiko/libs/otel"
	"github.com/amiko-app/amiko/libs/runtime"
	"github.com/amiko-app/amiko/services/community-service/internal/handlers"
	"github.com/amiko-app/amiko/services/community-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "community-service")
	port, err := config.Port("PORT", "8084")
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

	postHandler := handlers.NewPostHandler(storage.NewPostRepository(pool), logger)
	chatHandler := handlers.NewChatHandler(storage.NewChatRepository(pool), logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	mux.HandleFunc("POST /api/v1/posts", postHandler.Create)
	mux.HandleFunc("GET /api/v1/posts", postHandler.List)
	mux.HandleFunc("GET /api/v1/posts/{postID}", postHandler.Get)
	mux.HandleFunc("DELETE /api/v1/posts/{postID}", postHandler.Delete)
	mux.HandleFunc("POST /api/v1/posts/{postID}/comments", postHandler.CreateComment)
	mux.HandleFunc("GET /api/v1/posts/{postID}/comments", postHandler.ListComments)
	mux.HandleFunc("POST /api/v1/chat/rooms", chatHandler.CreateRoom)
	mux.HandleFunc("GET /api/v1/chat/rooms", chatHandler.ListRooms)
	mux.HandleFunc("POST /api/v1/chat/rooms/{roomID}/messages", chatHandler.PostMessage)
	mux.HandleFunc("GET /api/v1/chat/rooms/{roomID}/messages", chatHandler.ListMessages)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "community")
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
