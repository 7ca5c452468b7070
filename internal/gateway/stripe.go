package gateway

import (
	"context"
	"fmt"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/ctxlog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/utils"
)

type StripeConfig struct {
	APIKey   string
	Currency string
}

type stripeGateway struct {
	api      *client.API
	currency string
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) CardGateway {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &stripeGateway{
		api:      api,
		currency: cfg.Currency,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "stripe",
		}),
		logger: logger,
		tracer: otel.Tracer("gateway/stripe"),
	}
}

// toMinorUnits converts a decimal amount to the integer minor units stripe
// expects.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (g *stripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, receiptEmail string) (*CardIntent, error) {
	ctx, span := g.tracer.Start(ctx, "StripeGateway.CreateIntent")
	defer span.End()

	span.SetAttributes(attribute.String("amount", amount.String()))

	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(toMinorUnits(amount)),
		Currency:     stripe.String(g.currency),
		ReceiptEmail: stripe.String(receiptEmail),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	intent, err := utils.ExecuteWithBreaker(g.breaker, func() (*stripe.PaymentIntent, error) {
		return g.api.PaymentIntents.New(params)
	})
	if err != nil {
		span.RecordError(err)

		ctxlog.Warn(ctx, g.logger, "Stripe intent creation failed", zap.Error(err))

		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return &CardIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}

func (g *stripeGateway) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	ctx, span := g.tracer.Start(ctx, "StripeGateway.Refund")
	defer span.End()

	span.SetAttributes(
		attribute.String("payment_intent", intentID),
		attribute.String("amount", amount.String()),
	)

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}
	params.Context = ctx

	_, err := utils.ExecuteWithBreaker(g.breaker, func() (*stripe.Refund, error) {
		return g.api.Refunds.New(params)
	})
	if err != nil {
		span.RecordError(err)

		ctxlog.Warn(ctx, g.logger, "Stripe refund failed",
			zap.String("payment_intent", intentID),
			zap.Error(err),
		)

		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return nil
}
