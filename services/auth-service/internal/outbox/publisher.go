package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/libs/kafkax"
	otelx "github.com/amiko-app/amiko/libs/otel"
	"github.com/segmentio/kafka-go"
)

type PublisherConfig struct {
	Brokers      string
	Topic        string
	BatchSize    int
	PollInterval time.Duration
}

// Publisher drains unpublished outbox rows to Kafka. Rows are locked
// with SKIP LOCKED so multiple replicas can run the loop concurrently.
type Publisher struct {
	pool   *db.Pool
	repo   *Repository
	writer *kafka.Writer
	log    *slog.Logger
	cfg    PublisherConfig
}

func NewPublisher(pool *db.Pool, repo *Repository, log *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkax.SplitBrokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Publisher{pool: pool, repo: repo, writer: writer, log: log, cfg: cfg}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	defer p.writer.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.drain(ctx); err != nil && ctx.Err() == nil {
				p.log.Error("outbox drain failed", "err", err)
			}
		}
	}
}

func (p *Publisher) drain(ctx context.Context) error {
	for {
		n, err := p.drainBatch(ctx)
		if err != nil || n < p.cfg.BatchSize {
			return err
		}
	}
}

func (p *Publisher) drainBatch(ctx context.Context) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	records, err := p.repo.FetchUnpublished(ctx, tx, p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, rcd := range records {
		headers := []kafka.Header{
			{Key: "event_id", Value: []byte(rcd.EventID)},
			{Key: "event_type", Value: []byte(rcd.EventType)},
		}
		msgCtx := otelx.ContextWithTraceContext(ctx, rcd.Traceparent, rcd.Tracestate)
		headers = kafkax.InjectTraceHeaders(msgCtx, headers)
		msgs = append(msgs, kafka.Message{
			Key:     []byte(rcd.AggregateID),
			Value:   rcd.Payload,
			Headers: headers,
		})
		ids = append(ids, rcd.ID)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(records), nil
}
