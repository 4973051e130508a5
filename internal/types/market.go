package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Ticker is the latest top-of-book and last-trade summary for a product.
// Bid and Ask are absent when the exchange reports no resting order on that side.
type Ticker struct {
	Product string                           `yaml:"product" json:"product"`
	Price   decimal.Decimal                  `yaml:"price" json:"price"`
	Bid     optional.Option[decimal.Decimal] `yaml:"bid" json:"bid"`
	Ask     optional.Option[decimal.Decimal] `yaml:"ask" json:"ask"`
	Size    decimal.Decimal                  `yaml:"size" json:"size"`
	Volume  decimal.Decimal                  `yaml:"volume" json:"volume"`
	Time    time.Time                        `yaml:"time" json:"time"`
}

// PriceLevel is one aggregated level of an order book.
// OrderCount is zero when the venue does not report it.
type PriceLevel struct {
	Price      decimal.Decimal `yaml:"price" json:"price"`
	Size       decimal.Decimal `yaml:"size" json:"size"`
	OrderCount int             `yaml:"order_count" json:"order_count"`
}

// OrderBook is an aggregated (level 2) book. Bids are sorted best (highest) first,
// asks best (lowest) first.
type OrderBook struct {
	Product  string       `yaml:"product" json:"product"`
	Sequence int64        `yaml:"sequence" json:"sequence"`
	Time     time.Time    `yaml:"time" json:"time"`
	Bids     []PriceLevel `yaml:"bids" json:"bids"`
	Asks     []PriceLevel `yaml:"asks" json:"asks"`
}

// BestBid returns the highest bid, if any.
func (b OrderBook) BestBid() optional.Option[PriceLevel] {
	if len(b.Bids) == 0 {
		return optional.None[PriceLevel]()
	}

	return optional.Some(b.Bids[0])
}

// BestAsk returns the lowest ask, if any.
func (b OrderBook) BestAsk() optional.Option[PriceLevel] {
	if len(b.Asks) == 0 {
		return optional.None[PriceLevel]()
	}

	return optional.Some(b.Asks[0])
}

// TradeMatch is a single trade reported by the live feed.
type TradeMatch struct {
	TradeID int64           `yaml:"trade_id" json:"trade_id"`
	Product string          `yaml:"product" json:"product"`
	Price   decimal.Decimal `yaml:"price" json:"price"`
	Size    decimal.Decimal `yaml:"size" json:"size"`
	Time    time.Time       `yaml:"time" json:"time"`
}

// ParseDecimal parses an exchange decimal string. Empty strings, unparsable values and
// zero are reported as absent, since venues use "" and "0" for an empty side.
func ParseDecimal(value string) optional.Option[decimal.Decimal] {
	if value == "" {
		return optional.None[decimal.Decimal]()
	}

	d, err := decimal.NewFromString(value)
	if err != nil || d.IsZero() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(d)
}

// ParseDecimalOrZero parses an exchange decimal string, falling back to zero.
func ParseDecimalOrZero(value string) decimal.Decimal {
	return ParseDecimal(value).TakeOr(decimal.Zero)
}
