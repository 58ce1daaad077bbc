package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/db"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/outbox/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/outbox/repository"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type KafkaProducer interface {
	ProduceMessage(ctx context.Context, topic, key string, message any) error
}

type OutboxProcessor struct {
	tx            db.Transactor
	repo          repository.OutboxRepository
	kafkaProducer KafkaProducer
	logger        *zap.Logger
	batchSize     int
	interval      time.Duration
	tracer        trace.Tracer
	published     *prometheus.CounterVec
}

func NewOutboxProcessor(
	tx db.Transactor,
	repo repository.OutboxRepository,
	producer KafkaProducer,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		tx:            tx,
		repo:          repo,
		kafkaProducer: producer,
		logger:        logger,
		batchSize:     50,
		interval:      500 * time.Millisecond,
		tracer:        otel.Tracer("outbox-worker"),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events handed to Kafka, by event type and result.",
		}, []string{"event_type", "result"}),
	}
}

// Collector exposes the processor metrics for registration.
func (p *OutboxProcessor) Collector() prometheus.Collector {
	return p.published
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(ctx, p.logger, "Starting outbox processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(ctx, p.logger, "Outbox processor stopping")

			return
		case <-ticker.C:
			if _, err := p.processBatch(ctx); err != nil {
				mylogger.Error(
					ctx,
					p.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		}
	}
}

// processBatch publishes one batch of pending events and returns how many were published.
func (p *OutboxProcessor) processBatch(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	tx, err := p.tx.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(
				cleanupCtx,
				p.logger,
				"Outbox worker failed to rollback transaction",
				zap.Error(err),
				zap.String("method_name", "processBatch"),
			)
		}
	}()

	events, err := p.repo.GetUnpublishedEvents(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	mylogger.Debug(ctx, p.logger, "Processing outbox events", zap.Int("count", len(events)))

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.published.WithLabelValues(event.EventType, "failed").Inc()

			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker publish failed",
				zap.Int64("id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, tx, event.ID, err.Error()); dbErr != nil {
				return published, dbErr
			}

			continue
		}

		if err := p.repo.MarkEventPublished(ctx, tx, event.ID); err != nil {
			return published, err
		}

		p.published.WithLabelValues(event.EventType, "ok").Inc()
		published++
	}

	if err := tx.Commit(ctx); err != nil {
		return published, fmt.Errorf("error committing outbox batch: %w", err)
	}

	return published, nil
}

func (p *OutboxProcessor) publish(ctx context.Context, event *domain.OutboxEvent) error {
	var message map[string]any
	if err := json.Unmarshal(event.Payload, &message); err != nil {
		return fmt.Errorf("error unmarshaling payload: %w", err)
	}

	message["event_id"] = event.ID

	if len(event.Headers) > 0 {
		carrier := propagation.MapCarrier{}
		if err := json.Unmarshal(event.Headers, &carrier); err == nil {
			origin := otel.GetTextMapPropagator().Extract(context.Background(), carrier)
			if sc := trace.SpanContextFromContext(origin); sc.IsValid() {
				var span trace.Span
				ctx, span = p.tracer.Start(ctx, "OutboxProcessor.publish", trace.WithLinks(trace.Link{SpanContext: sc}))
				defer span.End()
			}
		}
	}

	return p.kafkaProducer.ProduceMessage(ctx, event.Topic, event.AggregateID, message)
}
