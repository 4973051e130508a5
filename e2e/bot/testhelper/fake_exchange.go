package testhelper

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-bot/internal/exchange"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/mocks"
)

// FakeExchange implements exchange.Client for testing.
// It keeps resting orders in memory and serves generated tickers and books.
type FakeExchange struct {
	mu sync.RWMutex

	generator *mocks.DataGenerator
	config    mocks.GeneratorConfig
	tickers   []types.Ticker
	next      int
	orders    []types.Order
	sequence  int64

	// Latency delays every call, honouring ctx
	Latency time.Duration

	// Behavior configuration
	FailFetches   bool
	FailCancelAll bool
	FailReason    string

	fetches int
}

// NewFakeExchange creates a fake exchange with count resting orders.
func NewFakeExchange(seed uint64, count int) *FakeExchange {
	generator := mocks.NewDataGenerator(seed)
	config := mocks.DefaultConfig()

	return &FakeExchange{
		mu:            sync.RWMutex{},
		generator:     generator,
		config:        config,
		tickers:       generator.GenerateTickers(config),
		next:          0,
		orders:        generator.GenerateOrders(config, count),
		sequence:      0,
		Latency:       0,
		FailFetches:   false,
		FailCancelAll: false,
		FailReason:    "",
		fetches:       0,
	}
}

// Orders returns the resting orders in placement order.
func (f *FakeExchange) Orders() []types.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return slices.Clone(f.orders)
}

// Fetches returns how many fetch calls were served.
func (f *FakeExchange) Fetches() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.fetches
}

// LastTicker returns the ticker most recently served, if any was.
func (f *FakeExchange) LastTicker() (types.Ticker, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.next == 0 {
		return types.Ticker{}, false
	}

	return f.tickers[(f.next-1)%len(f.tickers)], true
}

// FetchTicker implements exchange.Client, walking the generated tickers.
func (f *FakeExchange) FetchTicker(ctx context.Context, product string) (types.Ticker, error) {
	if err := f.wait(ctx); err != nil {
		return types.Ticker{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++

	if f.FailFetches {
		return types.Ticker{}, fmt.Errorf("ticker failed: %s", f.FailReason)
	}

	ticker := f.tickers[f.next%len(f.tickers)]
	ticker.Product = product
	f.next++

	return ticker, nil
}

// FetchOrderBook implements exchange.Client with a book around the last ticker price.
func (f *FakeExchange) FetchOrderBook(ctx context.Context, product string) (types.OrderBook, error) {
	if err := f.wait(ctx); err != nil {
		return types.OrderBook{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++

	if f.FailFetches {
		return types.OrderBook{}, fmt.Errorf("order book failed: %s", f.FailReason)
	}

	f.sequence++
	mid := f.tickers[f.next%len(f.tickers)].Price.InexactFloat64()
	book := f.generator.GenerateOrderBook(f.config, mid, f.sequence)
	book.Product = product

	return book, nil
}

// FetchOpenOrders implements exchange.Client.
func (f *FakeExchange) FetchOpenOrders(ctx context.Context, _ string) ([]types.Order, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++

	if f.FailFetches {
		return nil, fmt.Errorf("open orders failed: %s", f.FailReason)
	}

	return slices.Clone(f.orders), nil
}

// CancelOrder implements exchange.Client. Unknown ids succeed.
func (f *FakeExchange) CancelOrder(ctx context.Context, _ string, orderID string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.orders = slices.DeleteFunc(f.orders, func(o types.Order) bool { return o.ID == orderID })

	return nil
}

// CancelAllOrders implements exchange.Client.
func (f *FakeExchange) CancelAllOrders(ctx context.Context, _ string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCancelAll {
		return fmt.Errorf("cancel all failed: %s", f.FailReason)
	}

	f.orders = f.orders[:0]

	return nil
}

func (f *FakeExchange) wait(ctx context.Context) error {
	if f.Latency <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.Latency):
		return nil
	}
}

var _ exchange.Client = (*FakeExchange)(nil)
