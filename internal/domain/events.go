package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kafka topics carrying the domain events below, wrapped in the
// {event, payload} envelope.
const (
	TopicOrderEvents   = "order_events"
	TopicPaymentEvents = "payment_events"
)

const (
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
	EventRefundInitiated  = "RefundInitiated"
)

type PaymentSucceededEvent struct {
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	EventID   int64           `json:"event_id,omitempty"`
}

type PaymentFailedEvent struct {
	OrderID    string    `json:"order_id"`
	PaymentID  string    `json:"payment_id"`
	ResultCode string    `json:"result_code"`
	ResultDesc string    `json:"result_desc"`
	FailedAt   time.Time `json:"failed_at"`
	EventID    int64     `json:"event_id,omitempty"`
}

type RefundInitiatedEvent struct {
	PaymentID string          `json:"payment_id"`
	RefundID  string          `json:"refund_id"`
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	EventID   int64           `json:"event_id,omitempty"`
}
