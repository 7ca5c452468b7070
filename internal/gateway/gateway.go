package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable wraps provider transport failures and open-breaker
// rejections so callers can map them to a single upstream-failure response.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// CardIntent is the provider-side handle for a card charge.
type CardIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// CardGateway authorizes and refunds card payments.
type CardGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, receiptEmail string) (*CardIntent, error)
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) error
}

// STKPush is the provider-side handle for a mobile-money charge prompt.
type STKPush struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResponseCode      string
}

// MobileGateway initiates mobile-money charges and payouts. Charge results
// arrive asynchronously on the callback endpoint, payout results on the
// result endpoint.
type MobileGateway interface {
	STKPush(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*STKPush, error)
	B2CPayment(ctx context.Context, phone string, amount decimal.Decimal, remarks string) (string, error)
}
