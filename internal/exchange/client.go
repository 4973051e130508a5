package exchange

import (
	"context"

	"github.com/rxtech-lab/argo-bot/internal/types"
)

// DefaultProduct is the product traded when none is configured.
const DefaultProduct = "BTCUSDT"

// Client is the set of exchange capabilities the bot relies on. Every call may block on
// network I/O and must honour ctx.
type Client interface {
	// FetchTicker returns the current ticker for a product
	FetchTicker(ctx context.Context, product string) (types.Ticker, error)
	// FetchOrderBook returns the aggregated (level 2) order book for a product
	FetchOrderBook(ctx context.Context, product string) (types.OrderBook, error)
	// FetchOpenOrders returns the account's open orders for a product, in exchange order
	FetchOpenOrders(ctx context.Context, product string) ([]types.Order, error)
	// CancelOrder cancels a single order. Cancelling an unknown id succeeds without effect.
	CancelOrder(ctx context.Context, product string, orderID string) error
	// CancelAllOrders cancels every open order for a product
	CancelAllOrders(ctx context.Context, product string) error
}
