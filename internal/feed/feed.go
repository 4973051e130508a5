// Package feed keeps a push-based view of one product's market: the current order book
// snapshot and the last trade price, plus a fan-out of trade matches.
package feed

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bot/internal/types"
)

// TradeHandler receives every trade match observed by a feed.
type TradeHandler func(trade types.TradeMatch)

// Feed is a live market-data subscription.
type Feed interface {
	// OrderBook returns the latest synchronized book, absent until the first depth update.
	OrderBook() optional.Option[types.OrderBook]
	// LastTrade returns the most recent trade match, absent until the first trade.
	LastTrade() optional.Option[types.TradeMatch]
	// Subscribe registers a handler for trade matches and returns a function removing it.
	Subscribe(handler TradeHandler) (unsubscribe func())
	// Run keeps the subscription alive, reconnecting on close, until ctx is done.
	Run(ctx context.Context) error
}
