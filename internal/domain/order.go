package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusIncomplete PaymentStatus = "incomplete"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Order aggregates line items with derived totals and a payment status.
// Total always equals the fold over the current line items as of the last
// Recompute.
type Order struct {
	ID                      string          `db:"id" json:"id"`
	PaymentStatus           PaymentStatus   `db:"payment_status" json:"payment_status"`
	Total                   decimal.Decimal `db:"total" json:"total"`
	AmountPaid              decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	TotalDiscountAmount     decimal.Decimal `db:"total_discount_amount" json:"total_discount_amount"`
	TotalDiscountPercentage decimal.Decimal `db:"total_discount_percentage" json:"total_discount_percentage"`
	ExtraFee                decimal.Decimal `db:"extra_fee" json:"extra_fee"`
	StripeID                string          `db:"stripe_id" json:"stripe_id,omitempty"`
	MerchantRequestID       string          `db:"merchant_request_id" json:"merchant_request_id,omitempty"`
	MpesaReceiptNumber      string          `db:"mpesa_receipt_number" json:"mpesa_receipt_number,omitempty"`
	RecipientName           string          `db:"recipient_name" json:"recipient_name"`
	ReceiptEmail            string          `db:"receipt_email" json:"receipt_email"`
	OrganizationID          *int64          `db:"organization_id" json:"organization_id,omitempty"`
	Grade                   string          `db:"grade" json:"grade,omitempty"`
	Delivered               bool            `db:"delivered" json:"delivered"`
	Items                   []OrderItem     `json:"items"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is one order line. Item carries the referenced catalog entry,
// loaded by reference on read; the line itself stores only sku and quantity.
type OrderItem struct {
	ID       int64  `db:"id" json:"id"`
	OrderID  string `db:"order_id" json:"order_id"`
	ItemSKU  string `db:"item_sku" json:"item_sku"`
	Quantity int32  `db:"quantity" json:"quantity"`
	Item     Item   `json:"item"`
}

// Recompute folds the current line items into the order totals and re-derives
// the payment status. The fold is order-independent.
func (o *Order) Recompute() {
	total := decimal.Zero
	originalTotal := decimal.Zero
	for _, line := range o.Items {
		qty := decimal.NewFromInt(int64(line.Quantity))
		total = total.Add(line.Item.DiscountedPrice.Mul(qty))
		originalTotal = originalTotal.Add(line.Item.Price.Mul(qty))
	}

	o.Total = total
	o.TotalDiscountAmount = originalTotal.Sub(total)
	if originalTotal.IsPositive() {
		o.TotalDiscountPercentage = o.TotalDiscountAmount.
			Div(originalTotal).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	} else {
		o.TotalDiscountPercentage = decimal.Zero
	}

	o.DerivePaymentStatus()
}

// DerivePaymentStatus is the single authority for the pending/paid decision:
// paid iff the total is positive and amount_paid covers it. An emptied order
// stays pending so its lines remain mutable. refunded is a terminal annotation
// and is never overwritten; failed is re-derivable so a retried payment can
// bring the order back through pending.
func (o *Order) DerivePaymentStatus() {
	if o.PaymentStatus == PaymentStatusRefunded {
		return
	}
	if o.Total.IsPositive() && o.AmountPaid.GreaterThanOrEqual(o.Total) {
		o.PaymentStatus = PaymentStatusPaid
	} else {
		o.PaymentStatus = PaymentStatusPending
	}
}

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusApproved  RequestStatus = "approved"
)

type CancellationRequest struct {
	ID          int64         `db:"id" json:"id"`
	OrderID     string        `db:"order_id" json:"order_id"`
	Description string        `db:"description" json:"description"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

type ReturnRequest struct {
	ID        int64         `db:"id" json:"id"`
	OrderID   string        `db:"order_id" json:"order_id"`
	Status    RequestStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Receipt marks that a receipt document was produced for an order. Its
// existence gates receipt emission to once per order.
type Receipt struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
