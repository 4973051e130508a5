package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeOther  OrderType = "OTHER"
)

// Order is an open order resting on the exchange for the authenticated account.
type Order struct {
	ID         string          `yaml:"id" json:"id"`
	Product    string          `yaml:"product" json:"product"`
	Side       Side            `yaml:"side" json:"side"`
	Type       OrderType       `yaml:"type" json:"type"`
	Price      decimal.Decimal `yaml:"price" json:"price"`
	Size       decimal.Decimal `yaml:"size" json:"size"`
	FilledSize decimal.Decimal `yaml:"filled_size" json:"filled_size"`
	Status     string          `yaml:"status" json:"status"`
	CreatedAt  time.Time       `yaml:"created_at" json:"created_at"`
}

// OrderIDs returns the ids of orders in their original order.
func OrderIDs(orders []Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	return ids
}
