package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeDiscountedPrice(t *testing.T) {
	price := dec("250.00")

	discounted := ComputeDiscountedPrice(price, dec("20"))
	require.True(t, dec("200").Equal(discounted))

	require.True(t, price.Equal(ComputeDiscountedPrice(price, decimal.Zero)))
	require.True(t, price.Equal(ComputeDiscountedPrice(price, dec("-5"))))
}

func TestRecompute(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{
				Quantity: 2,
				Item:     Item{Price: dec("100.00"), Discount: dec("10"), DiscountedPrice: dec("90.00")},
			},
			{
				Quantity: 1,
				Item:     Item{Price: dec("50.00"), Discount: decimal.Zero, DiscountedPrice: dec("50.00")},
			},
		},
	}

	order.Recompute()

	require.True(t, dec("230").Equal(order.Total), "total: %s", order.Total)
	require.True(t, dec("20").Equal(order.TotalDiscountAmount))
	require.True(t, dec("8").Equal(order.TotalDiscountPercentage), "pct: %s", order.TotalDiscountPercentage)
	require.Equal(t, PaymentStatusPending, order.PaymentStatus)
}

func TestRecompute_OrderIndependent(t *testing.T) {
	a := OrderItem{Quantity: 3, Item: Item{Price: dec("75.50"), DiscountedPrice: dec("60.40")}}
	b := OrderItem{Quantity: 1, Item: Item{Price: dec("120.00"), DiscountedPrice: dec("120.00")}}
	c := OrderItem{Quantity: 2, Item: Item{Price: dec("33.33"), DiscountedPrice: dec("29.99")}}

	first := &Order{Items: []OrderItem{a, b, c}}
	second := &Order{Items: []OrderItem{c, a, b}}

	first.Recompute()
	second.Recompute()

	require.True(t, first.Total.Equal(second.Total))
	require.True(t, first.TotalDiscountAmount.Equal(second.TotalDiscountAmount))
	require.True(t, first.TotalDiscountPercentage.Equal(second.TotalDiscountPercentage))
}

func TestRecompute_EmptyOrder(t *testing.T) {
	order := &Order{PaymentStatus: PaymentStatusPending}
	order.Recompute()

	require.True(t, order.Total.IsZero())
	require.True(t, order.TotalDiscountPercentage.IsZero())
	require.Equal(t, PaymentStatusPending, order.PaymentStatus)
}

func TestDerivePaymentStatus(t *testing.T) {
	order := &Order{Total: dec("100"), AmountPaid: dec("100")}
	order.DerivePaymentStatus()
	require.Equal(t, PaymentStatusPaid, order.PaymentStatus)

	order = &Order{Total: dec("100"), AmountPaid: dec("99.99")}
	order.DerivePaymentStatus()
	require.Equal(t, PaymentStatusPending, order.PaymentStatus)

	order = &Order{Total: dec("100"), AmountPaid: dec("150")}
	order.DerivePaymentStatus()
	require.Equal(t, PaymentStatusPaid, order.PaymentStatus)

	// a zero total never derives paid, even though 0 >= 0
	order = &Order{Total: decimal.Zero, AmountPaid: decimal.Zero}
	order.DerivePaymentStatus()
	require.Equal(t, PaymentStatusPending, order.PaymentStatus)
}

func TestDerivePaymentStatus_RefundedSticky(t *testing.T) {
	order := &Order{
		PaymentStatus: PaymentStatusRefunded,
		Total:         dec("100"),
		AmountPaid:    dec("100"),
	}

	order.DerivePaymentStatus()
	require.Equal(t, PaymentStatusRefunded, order.PaymentStatus)

	order.Recompute()
	require.Equal(t, PaymentStatusRefunded, order.PaymentStatus)
}

func TestDerivePaymentStatus_FailedRederivable(t *testing.T) {
	order := &Order{
		PaymentStatus: PaymentStatusFailed,
		Total:         dec("100"),
		AmountPaid:    dec("100"),
	}

	order.DerivePaymentStatus()
	require.Equal(t, PaymentStatusPaid, order.PaymentStatus)
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		require.Len(t, code, 6)
		for _, r := range code {
			require.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = struct{}{}
	}

	require.Greater(t, len(seen), 90)
}
