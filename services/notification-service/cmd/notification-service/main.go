package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/amiko-app/amiko/libs/config"
	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/libs/httpx"
	"github.com/amiko-app/amiko/libs/kafkax"
	otelx "github.com/amiko-app/amiko/libs/otel"
	"github.com/amiko-app/amiko/libs/runtime"
	"github.com/amiko-app/amiko/services/notification-service/internal/consumer"
	"github.com/amiko-app/amiko/services/notification-service/internal/email"
	"github.com/amiko-app/amiko/services/notification-service/internal/inbox"
	"github.com/amiko-app/amiko/services/notification-service/internal/render"
	"github.com/amiko-app/amiko/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type bookingPayload struct {
	BookingID     string `json:"bookingId"`
	UserID        string `json:"userId"`
	PartnerUserID string `json:"partnerUserId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	CancelledAt   string `json:"cancelledAt"`
}

type userCreatedPayload struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	NativeLang string `json:"nativeLang"`
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	inboxRepo := inbox.NewRepository(pool)
	notifications := storage.NewNotificationRepository(pool)

	smtpHost := config.String("SMTP_HOST", "mailpit")
	smtpPort := config.String("SMTP_PORT", "1025")
	smtpFrom := config.String("SMTP_FROM", "no-reply@amiko.local")
	emailSender := email.NewSMTPSender(smtpHost, smtpPort, smtpFrom)

	// send delivers one rendered email and persists the attempt. Lookup
	// failures for soft-deleted recipients are not errors.
	send := func(ctx context.Context, userID, bookingID, eventType string, payload []byte, msg func(lang string) render.Message) {
		rcp, err := notifications.RecipientFor(ctx, userID)
		if err != nil {
			if storage.IsNotFound(err) {
				logger.Info("recipient gone, skipping", "userId", userID, "eventType", eventType)
				return
			}
			logger.Error("recipient lookup failed", "err", err, "userId", userID)
			return
		}
		m := msg(rcp.NativeLang)
		status := storage.StatusSent
		if err := emailSender.Send(rcp.Email, m.Subject, m.Body); err != nil {
			status = storage.StatusFailed
			logger.Error("email send failed", "err", err, "recipient", rcp.Email, "eventType", eventType)
		}
		if err := notifications.Record(ctx, storage.Notification{
			UserID:    userID,
			BookingID: bookingID,
			Channel:   "email",
			Recipient: rcp.Email,
			EventType: eventType,
			Payload:   payload,
			Status:    status,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
		}
	}

	handleBooking := func(ctx context.Context, msg kafka.Message) error {
		meta := kafkax.ExtractEventMeta(msg)
		var payload bookingPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid booking payload", "err", err)
			return nil
		}
		if payload.BookingID == "" || payload.UserID == "" || payload.PartnerUserID == "" {
			logger.Error("missing booking fields", "eventType", meta.EventType)
			return nil
		}
		info := render.BookingInfo{Date: payload.Date, StartTime: payload.StartTime, EndTime: payload.EndTime}

		var build func(lang string) render.Message
		switch meta.EventType {
		case "booking.created.v1":
			build = func(lang string) render.Message { return render.BookingCreated(lang, info) }
		case "booking.cancelled.v1":
			build = func(lang string) render.Message { return render.BookingCancelled(lang, info) }
		default:
			logger.Info("booking event ignored", "eventType", meta.EventType)
			return nil
		}

		// Both sides of the call get notified, each in their own language.
		send(ctx, payload.UserID, payload.BookingID, meta.EventType, msg.Value, build)
		send(ctx, payload.PartnerUserID, payload.BookingID, meta.EventType, msg.Value, build)

		logger.Info("booking event processed", "bookingId", payload.BookingID, "eventType", meta.EventType)
		return nil
	}

	handleAuth := func(ctx context.Context, msg kafka.Message) error {
		meta := kafkax.ExtractEventMeta(msg)
		if meta.EventType != "auth.user.created.v1" {
			logger.Info("auth event ignored", "eventType", meta.EventType)
			return nil
		}
		var payload userCreatedPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid user payload", "err", err)
			return nil
		}
		if payload.UserID == "" || payload.Email == "" {
			logger.Error("missing user fields")
			return nil
		}
		m := render.Welcome(payload.NativeLang)
		status := storage.StatusSent
		if err := emailSender.Send(payload.Email, m.Subject, m.Body); err != nil {
			status = storage.StatusFailed
			logger.Error("email send failed", "err", err, "recipient", payload.Email)
		}
		if err := notifications.Record(ctx, storage.Notification{
			UserID:    payload.UserID,
			Channel:   "email",
			Recipient: payload.Email,
			EventType: meta.EventType,
			Payload:   msg.Value,
			Status:    status,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
		}
		logger.Info("welcome email processed", "userId", payload.UserID, "status", status)
		return nil
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")

	bookingConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   config.String("KAFKA_BOOKING_TOPIC", "amiko.booking.events"),
	}, handleBooking)
	go bookingConsumer.Run(ctx)

	authConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   config.String("KAFKA_AUTH_TOPIC", "amiko.auth.events"),
	}, handleAuth)
	go authConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
