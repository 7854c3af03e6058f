package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuseats/ordering/internal/order/domain"
	"github.com/campuseats/ordering/internal/realtime"
	"github.com/campuseats/ordering/pkg/tracing"
)

// Consumer feeds the bridge from the outbox topic. Undecodable messages
// are committed and dropped: a lost cue is recovered by the next change,
// and subscribers tolerate duplicates anyway, so no dedup is needed here.
type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	bridge *realtime.Bridge
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, bridge *realtime.Bridge) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		bridge: bridge,
		tracer: otel.Tracer("realtime-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		_, span := c.tracer.Start(msgCtx, "ConsumeOrderChanged")

		var event domain.OrderChanged
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.Error("change event unmarshal failed", "err", err)
			span.End()
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		c.bridge.Notify(realtime.Change{Collection: "orders", OwnerID: event.OwnerID})
		c.log.Debug("change signalled", "order_id", event.OrderID, "op", event.Op)

		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}
