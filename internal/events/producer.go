package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/avelichko/storefront/internal/cart"
)

const publishTimeout = 5 * time.Second

// Producer publishes cart mutation events. It implements cart.Notifier;
// delivery problems are logged, never propagated into the mutation path.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{writer: w, logger: logger}
}

func (p *Producer) publish(ctx context.Context, key string, event map[string]any) error {
	event["event_id"] = uuid.NewString()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return fmt.Errorf("kafka: write message: %w", err)
	}
	return nil
}

func (p *Producer) CartMutated(ctx context.Context, rec cart.Record) {
	event := map[string]any{
		"type":     "cart_updated",
		"userID":   rec.UserID,
		"lines":    len(rec.Lines),
		"revision": rec.Revision,
	}
	if err := p.publish(ctx, fmt.Sprint(rec.UserID), event); err != nil {
		p.logger.Error("cart_event_publish_failed", "error", err)
	}
}

func (p *Producer) CartMutationFailed(ctx context.Context, userID, productID int, cause error) {
	event := map[string]any{
		"type":      "cart_mutation_failed",
		"userID":    userID,
		"productID": productID,
		"error":     cause.Error(),
	}
	if err := p.publish(ctx, fmt.Sprint(userID), event); err != nil {
		p.logger.Error("cart_event_publish_failed", "error", err)
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
