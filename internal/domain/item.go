package domain

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a 6-character uppercase alphanumeric code used as the
// public identifier for orders and catalog items. Uniqueness is enforced by
// the caller against the store.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(6)
	for i := 0; i < 6; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// Item is a catalog entry referenced by order lines. DiscountedPrice is
// derived on every write, never trusted from input.
type Item struct {
	SKU               string          `db:"sku" json:"sku"`
	Name              string          `db:"name" json:"name"`
	Price             decimal.Decimal `db:"price" json:"price"`
	Discount          decimal.Decimal `db:"discount" json:"discount"`
	DiscountedPrice   decimal.Decimal `db:"discounted_price" json:"discounted_price"`
	Category          string          `db:"category" json:"category"`
	Visibility        bool            `db:"visibility" json:"visibility"`
	StockAvailability bool            `db:"stock_availability" json:"stock_availability"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// ComputeDiscountedPrice applies a percentage discount to a unit price.
// A non-positive discount leaves the price unchanged.
func ComputeDiscountedPrice(price, discount decimal.Decimal) decimal.Decimal {
	if !discount.IsPositive() {
		return price
	}
	return price.Sub(price.Mul(discount).Div(decimal.NewFromInt(100)))
}

// ApplyDiscount recomputes the stored DiscountedPrice from Price and Discount.
func (i *Item) ApplyDiscount() {
	i.DiscountedPrice = ComputeDiscountedPrice(i.Price, i.Discount)
}
