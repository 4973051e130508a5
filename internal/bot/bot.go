// Package bot wires an exchange client, an optional live feed, an indicator store and
// a scheduler into one trading bot for a single product.
package bot

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-bot/internal/exchange"
	"github.com/rxtech-lab/argo-bot/internal/feed"
	"github.com/rxtech-lab/argo-bot/internal/indicator"
	"github.com/rxtech-lab/argo-bot/internal/logger"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/scheduler"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Options configures a Bot.
type Options struct {
	// Product defaults to exchange.DefaultProduct
	Product string
	Logger  *logger.Logger
	// Client is used as is. When nil, a Binance client is built from Credentials.
	Client      exchange.Client
	Credentials *exchange.Credentials
	// Feed is used as is. When nil and FeedEnabled is set, a Binance feed is built.
	Feed               feed.Feed
	FeedEnabled        bool
	FeedReconnectDelay time.Duration
	FeedMaxReconnects  int
	Strategy           scheduler.Strategy
	StrategyName       string
	Metrics            *metrics.Metrics
	Clock              func() time.Time
	Rand               *rand.Rand
}

// Bot is the strategy-facing context and owns the trading lifecycle.
type Bot struct {
	product   string
	logger    *logger.Logger
	client    exchange.Client
	feed      feed.Feed
	store     *indicator.Store
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics

	mu          sync.Mutex
	feedCancel  context.CancelFunc
	feedWG      *conc.WaitGroup
	unsubscribe func()
	feedErr     error
}

// New validates opts and builds a stopped bot. It fails immediately when there is
// neither a client nor credentials to build one.
func New(opts Options) (*Bot, error) {
	product := opts.Product
	if product == "" {
		product = exchange.DefaultProduct
	}

	log := logger.OrNop(opts.Logger).With(zap.String("product", product))

	client := opts.Client
	if client == nil {
		if opts.Credentials == nil {
			return nil, errors.New(errors.ErrCodeMissingCredentials, "bot requires an exchange client or credentials")
		}

		binanceClient, err := exchange.NewBinanceClient(*opts.Credentials)
		if err != nil {
			return nil, err
		}

		client = binanceClient
	}

	live := opts.Feed
	if live == nil && opts.FeedEnabled {
		live = feed.NewBinanceFeed(feed.BinanceFeedOptions{
			Product:        product,
			ReconnectDelay: opts.FeedReconnectDelay,
			MaxReconnects:  opts.FeedMaxReconnects,
			Logger:         log,
			Metrics:        opts.Metrics,
			Clock:          opts.Clock,
		})
	}

	storeOpts := []indicator.Option{
		indicator.WithLogger(log),
		indicator.WithMetrics(opts.Metrics),
		indicator.WithClock(opts.Clock),
	}
	if live != nil {
		storeOpts = append(storeOpts, indicator.WithLiveSource(live))
	}

	b := &Bot{
		product:     product,
		logger:      log.Named("bot"),
		client:      client,
		feed:        live,
		store:       indicator.NewStore(product, client, storeOpts...),
		scheduler:   nil,
		metrics:     opts.Metrics,
		mu:          sync.Mutex{},
		feedCancel:  nil,
		feedWG:      nil,
		unsubscribe: nil,
		feedErr:     nil,
	}

	sched, err := scheduler.New(scheduler.Options{
		Strategy:     opts.Strategy,
		StrategyName: opts.StrategyName,
		Context:      b,
		CancelAll:    b.CancelAllOrders,
		Logger:       log,
		Metrics:      opts.Metrics,
		Rand:         opts.Rand,
		Clock:        opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	b.scheduler = sched

	return b, nil
}

// Product implements scheduler.Context.
func (b *Bot) Product() string {
	return b.product
}

// Store implements scheduler.Context.
func (b *Bot) Store() *indicator.Store {
	return b.store
}

// Logger implements scheduler.Context.
func (b *Bot) Logger() *logger.Logger {
	return b.logger
}

// IsTrading implements scheduler.Context.
func (b *Bot) IsTrading() bool {
	return b.scheduler.IsTrading()
}

// Scheduler returns the bot's scheduler.
func (b *Bot) Scheduler() *scheduler.Scheduler {
	return b.scheduler
}

// CancelOrder implements scheduler.Context. An id the exchange does not know succeeds.
func (b *Bot) CancelOrder(ctx context.Context, orderID string) error {
	if err := b.client.CancelOrder(ctx, b.product, orderID); err != nil {
		b.metrics.ObserveCancelFailure()
		b.logger.Error("cancel order failed", zap.String("order_id", orderID), zap.Error(err))

		return err
	}

	b.logger.Debug("order cancelled", zap.String("order_id", orderID))

	return nil
}

// CancelAllOrders implements scheduler.Context.
func (b *Bot) CancelAllOrders(ctx context.Context) error {
	if err := b.client.CancelAllOrders(ctx, b.product); err != nil {
		b.metrics.ObserveCancelFailure()
		b.logger.Error("cancel all orders failed", zap.Error(err))

		return err
	}

	b.logger.Info("all orders cancelled")

	return nil
}

// Connect starts the live feed supervisor in the background. It is a no-op without a
// feed or when already connected.
func (b *Bot) Connect(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.feed == nil || b.feedCancel != nil {
		return
	}

	feedCtx, cancel := context.WithCancel(ctx)
	b.feedCancel = cancel
	b.feedErr = nil
	b.unsubscribe = b.feed.Subscribe(func(trade types.TradeMatch) {
		b.logger.Debug("trade",
			zap.Int64("trade_id", trade.TradeID),
			zap.String("price", trade.Price.String()),
			zap.String("size", trade.Size.String()),
		)
	})

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		if err := b.feed.Run(feedCtx); err != nil {
			b.logger.Error("live feed stopped", zap.Error(err))

			b.mu.Lock()
			b.feedErr = err
			b.mu.Unlock()
		}
	})
	b.feedWG = wg
}

// FeedErr returns the error the feed supervisor gave up with, if any.
func (b *Bot) FeedErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.feedErr
}

// StartTrading implements the scheduler lifecycle for this bot.
func (b *Bot) StartTrading(ctx context.Context, config scheduler.TradingConfig) error {
	return b.scheduler.StartTrading(ctx, config)
}

// StopTrading halts the scheduler, cancelling open orders first when opts.Cancel is set.
func (b *Bot) StopTrading(ctx context.Context, opts scheduler.StopOptions) error {
	return b.scheduler.StopTrading(ctx, opts)
}

// Stats returns the current or last session stats.
func (b *Bot) Stats() types.SessionStats {
	return b.scheduler.Stats()
}

// Close stops trading without cancelling orders, waits for an in-flight run and stops
// the feed supervisor.
func (b *Bot) Close(ctx context.Context) error {
	err := b.scheduler.StopTrading(ctx, scheduler.StopOptions{Cancel: false})
	b.scheduler.Wait()

	b.mu.Lock()
	cancel, wg, unsubscribe := b.feedCancel, b.feedWG, b.unsubscribe
	b.feedCancel, b.feedWG, b.unsubscribe = nil, nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		wg.Wait()
		unsubscribe()
	}

	return err
}
