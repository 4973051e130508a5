package mocks

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator generates realistic market snapshots for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed uint64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Product is the trading pair (e.g., "BTCUSDT")
	Product string
	// StartTime is the time of the first snapshot
	StartTime time.Time
	// Interval is the duration between snapshots
	Interval time.Duration
	// Count is the number of snapshots to generate
	Count int
	// InitialPrice is the starting last trade price
	InitialPrice float64
	// Volatility controls price movement per snapshot (0.01 = 1%)
	Volatility float64
	// Spread is the relative bid/ask spread around the last price
	Spread float64
	// Levels is the number of order book levels per side
	Levels int
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Product:      "BTCUSDT",
		StartTime:    time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:     time.Second,
		Count:        100,
		InitialPrice: 42000.0,
		Volatility:   0.001,
		Spread:       0.0002,
		Levels:       5,
	}
}

// GenerateTickers creates a random walk of tickers. Every ticker has both sides, with
// bid < price < ask.
func (g *DataGenerator) GenerateTickers(config GeneratorConfig) []types.Ticker {
	tickers := make([]types.Ticker, config.Count)
	price := config.InitialPrice
	now := config.StartTime

	for i := 0; i < config.Count; i++ {
		price = g.step(price, config.Volatility)
		half := price * config.Spread / 2

		tickers[i] = types.Ticker{
			Product: config.Product,
			Price:   toDecimal(price),
			Bid:     optional.Some(toDecimal(price - half)),
			Ask:     optional.Some(toDecimal(price + half)),
			Size:    toDecimal(g.rng.Float64() * 2),
			Volume:  toDecimal(1000 + g.rng.Float64()*500),
			Time:    now,
		}

		now = now.Add(config.Interval)
	}

	return tickers
}

// GenerateOrderBook creates a book around mid with config.Levels levels per side,
// bids descending and asks ascending.
func (g *DataGenerator) GenerateOrderBook(config GeneratorConfig, mid float64, sequence int64) types.OrderBook {
	book := types.OrderBook{
		Product:  config.Product,
		Sequence: sequence,
		Time:     config.StartTime,
		Bids:     make([]types.PriceLevel, config.Levels),
		Asks:     make([]types.PriceLevel, config.Levels),
	}

	tick := mid * config.Spread / 2

	for i := 0; i < config.Levels; i++ {
		offset := tick * float64(i+1)
		book.Bids[i] = types.PriceLevel{Price: toDecimal(mid - offset), Size: toDecimal(0.1 + g.rng.Float64()), OrderCount: 1 + g.rng.IntN(5)}
		book.Asks[i] = types.PriceLevel{Price: toDecimal(mid + offset), Size: toDecimal(0.1 + g.rng.Float64()), OrderCount: 1 + g.rng.IntN(5)}
	}

	return book
}

// GenerateOrders creates count resting limit orders with ascending numeric ids.
func (g *DataGenerator) GenerateOrders(config GeneratorConfig, count int) []types.Order {
	orders := make([]types.Order, count)

	for i := 0; i < count; i++ {
		side := types.SideBuy
		if g.rng.IntN(2) == 1 {
			side = types.SideSell
		}

		orders[i] = types.Order{
			ID:         strconv.Itoa(1000 + i),
			Product:    config.Product,
			Side:       side,
			Type:       types.OrderTypeLimit,
			Price:      toDecimal(g.step(config.InitialPrice, config.Volatility*10)),
			Size:       toDecimal(0.01 + g.rng.Float64()),
			FilledSize: decimal.Zero,
			Status:     "NEW",
			CreatedAt:  config.StartTime.Add(time.Duration(i) * config.Interval),
		}
	}

	return orders
}

// step applies one geometric Brownian motion move using a Box-Muller normal draw.
func (g *DataGenerator) step(price, volatility float64) float64 {
	u1 := 1 - g.rng.Float64()
	u2 := g.rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	next := price * (1 + volatility*z)
	if next <= 0 {
		next = price * 0.99 // Prevent negative prices
	}

	return roundToDecimals(next, 2)
}

func toDecimal(val float64) decimal.Decimal {
	return decimal.NewFromFloat(roundToDecimals(val, 4))
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
