// Package strategy holds the built-in strategies selectable by name from the config file.
package strategy

import (
	"context"
	"slices"

	"github.com/rxtech-lab/argo-bot/internal/scheduler"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
	"go.uber.org/zap"
)

const (
	// NameMidmarketLogger refreshes every indicator and logs the derived prices.
	NameMidmarketLogger = "midmarket-logger"
	// NameRefreshOnly refreshes every indicator and does nothing else.
	NameRefreshOnly = "refresh-only"
)

var builtins = map[string]func() scheduler.Strategy{
	NameMidmarketLogger: func() scheduler.Strategy { return MidmarketLogger{} },
	NameRefreshOnly:     func() scheduler.Strategy { return RefreshOnly{} },
}

// Names returns the built-in strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// ByName returns a new instance of the named built-in strategy.
func ByName(name string) (scheduler.Strategy, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy %q, expected one of %v", name, Names())
	}

	return build(), nil
}

// RefreshOnly keeps the indicator store fresh.
type RefreshOnly struct{}

// Run implements scheduler.Strategy.
func (RefreshOnly) Run(ctx context.Context, bot scheduler.Context) error {
	bot.Store().RefreshAll(ctx)

	return nil
}

// MidmarketLogger refreshes the store and logs the last and midmarket prices together
// with the open order count.
type MidmarketLogger struct{}

// Run implements scheduler.Strategy.
func (MidmarketLogger) Run(ctx context.Context, bot scheduler.Context) error {
	store := bot.Store()
	store.RefreshAll(ctx)

	fields := []zap.Field{zap.String("session_id", scheduler.SessionID(ctx))}

	if mid := store.MidmarketPrice(); mid.Value.IsSome() {
		fields = append(fields, zap.String("midmarket", mid.Value.Unwrap().String()))
	} else {
		fields = append(fields, zap.Int("midmarket_errors", len(mid.Errors)))
	}

	if price := store.Price(); price.Value.IsSome() {
		fields = append(fields, zap.String("price", price.Value.Unwrap().String()))
	}

	if orders := store.OpenOrders(); orders.Data.IsSome() {
		fields = append(fields, zap.Int("open_orders", len(orders.Data.Unwrap())))
	}

	bot.Logger().Info("market snapshot", fields...)

	return nil
}
