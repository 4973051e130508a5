package scheduler

import (
	"context"

	"github.com/rxtech-lab/argo-bot/internal/indicator"
	"github.com/rxtech-lab/argo-bot/internal/logger"
)

// Context is what a strategy can see and do during one run.
type Context interface {
	// Product returns the traded product
	Product() string
	// Store returns the indicator store, for reads and refreshes
	Store() *indicator.Store
	// CancelOrder cancels one order. An unknown id succeeds without effect.
	CancelOrder(ctx context.Context, orderID string) error
	// CancelAllOrders cancels every open order for the product
	CancelAllOrders(ctx context.Context) error
	// IsTrading reports whether the scheduler is trading
	IsTrading() bool
	// Logger returns the bot logger
	Logger() *logger.Logger
}

// Strategy is invoked once per non-skipped tick. Returned errors and panics are
// contained by the scheduler.
type Strategy interface {
	Run(ctx context.Context, bot Context) error
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, bot Context) error

// Run implements Strategy.
func (f StrategyFunc) Run(ctx context.Context, bot Context) error {
	return f(ctx, bot)
}

type sessionKey struct{}

// SessionID returns the trading session id carried by a strategy run context.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)

	return id
}

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}
