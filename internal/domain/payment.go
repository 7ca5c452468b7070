package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodMpesa  PaymentMethod = "mpesa"
)

// Payment is one reconciliation attempt against an order. Rows are append
// only: a retry after failure is a new Payment, never a status flip back to
// pending. (method, transaction_id) is unique.
type Payment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	OrderID       string          `db:"order_id" json:"order_id"`
	Method        PaymentMethod   `db:"payment_method" json:"payment_method"`
	Status        PaymentStatus   `db:"payment_status" json:"payment_status"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	ResultCode    string          `db:"result_code" json:"result_code,omitempty"`
	ResultDesc    string          `db:"result_desc" json:"result_desc,omitempty"`
	PayerEmail    string          `db:"payer_email" json:"payer_email,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the payment reached a state the reconciler must
// not move it out of. Duplicate gateway callbacks against a terminal payment
// are no-ops.
func (p *Payment) Terminal() bool {
	switch p.Status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund records one refund against a payment. TransactionID is the gateway
// reference used to match asynchronous transfer results; card refunds resolve
// synchronously and leave it empty.
type Refund struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	PaymentID     uuid.UUID       `db:"payment_id" json:"payment_id"`
	Amount        decimal.Decimal `db:"refund_amount" json:"refund_amount"`
	Status        RefundStatus    `db:"refund_status" json:"refund_status"`
	Reason        string          `db:"refund_reason" json:"refund_reason,omitempty"`
	TransactionID string          `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// STKCallback is the reconciler's view of an asynchronous mobile-money
// result, mapped from the gateway's callback payload by the transport layer.
type STKCallback struct {
	MerchantRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          []CallbackItem
}

type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Succeeded reports whether the gateway confirmed the payment.
func (c *STKCallback) Succeeded() bool { return c.ResultCode == 0 }

// Amount extracts the confirmed amount from callback metadata, if present.
func (c *STKCallback) Amount() (decimal.Decimal, bool) {
	for _, item := range c.Metadata {
		if item.Name == "Amount" {
			var d decimal.Decimal
			if err := json.Unmarshal(item.Value, &d); err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// ReceiptNumber extracts the gateway receipt reference from callback
// metadata, if present.
func (c *STKCallback) ReceiptNumber() (string, bool) {
	for _, item := range c.Metadata {
		if item.Name == "MpesaReceiptNumber" {
			var s string
			if err := json.Unmarshal(item.Value, &s); err == nil {
				return s, true
			}
		}
	}
	return "", false
}

// B2CResult is the asynchronous outcome of a mobile-money refund transfer.
type B2CResult struct {
	ResultCode    int
	ResultDesc    string
	TransactionID string
}
