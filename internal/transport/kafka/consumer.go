package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/domain"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/outbox"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/internal/service"
	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// GroupID is the consumer group all service instances join.
const GroupID = "orders-service-group"

// Consumer reacts to payment events: a successful payment bootstraps the
// fulfillment machine and emits the receipt, a failed payment is only logged.
type Consumer struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	tracking service.TrackingService
	receipts service.ReceiptService
}

func NewConsumer(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	tracking service.TrackingService,
	receipts service.ReceiptService,
) *Consumer {
	return &Consumer{
		pool:     pool,
		logger:   logger,
		tracking: tracking,
		receipts: receipts,
	}
}

func (c *Consumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var envelope outbox.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		ctxlog.Error(ctx, c.logger, "Failed to unmarshal event envelope, dropping",
			zap.String("topic", msg.Topic),
			zap.Error(err),
		)

		return nil
	}

	switch envelope.Event {
	case domain.EventPaymentSucceeded:
		return c.handlePaymentSucceeded(ctx, envelope.Payload)
	case domain.EventPaymentFailed:
		return c.handlePaymentFailed(ctx, envelope.Payload)
	default:
		ctxlog.Info(ctx, c.logger, "Ignoring event",
			zap.String("event", envelope.Event),
		)

		return nil
	}
}

func (c *Consumer) handlePaymentSucceeded(ctx context.Context, payload json.RawMessage) error {
	var event domain.PaymentSucceededEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal PaymentSucceeded: %w", err)
	}

	ctxlog.Info(ctx, c.logger, "Handling PaymentSucceeded",
		zap.String("order_id", event.OrderID),
		zap.Int64("event_id", event.EventID),
	)

	return outbox.ProcessWithDeduplication(ctx, c.pool, c.logger, event.EventID,
		func(ctx context.Context, tx pgx.Tx) error {
			if err := c.tracking.InitializeFulfillment(ctx, tx, event.OrderID); err != nil {
				return err
			}

			return c.receipts.EmitReceipt(ctx, tx, event.OrderID)
		},
	)
}

func (c *Consumer) handlePaymentFailed(ctx context.Context, payload json.RawMessage) error {
	var event domain.PaymentFailedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal PaymentFailed: %w", err)
	}

	ctxlog.Warn(ctx, c.logger, "Payment failed",
		zap.String("order_id", event.OrderID),
		zap.String("result_code", event.ResultCode),
		zap.String("result_desc", event.ResultDesc),
	)

	return nil
}
