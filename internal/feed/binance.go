package feed

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bot/internal/logger"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
	"go.uber.org/zap"
)

const (
	// BinanceDepthLevels is the number of levels per side kept from the partial depth stream.
	BinanceDepthLevels = "20"

	binanceMaxReconnectInterval = 30 * time.Second
)

// BinanceFeedOptions configures a BinanceFeed.
type BinanceFeedOptions struct {
	Product string
	// ReconnectDelay selects a fixed wait between reconnects. Zero selects exponential backoff.
	ReconnectDelay time.Duration
	// MaxReconnects bounds consecutive failed reconnects. Zero means unbounded.
	MaxReconnects int
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	// Clock stamps depth snapshots. Defaults to time.Now.
	Clock func() time.Time
}

// BinanceFeed implements Feed over the Binance partial depth and trade streams.
type BinanceFeed struct {
	product        string
	ws             BinanceWebSocketService
	reconnectDelay time.Duration
	maxReconnects  int
	logger         *logger.Logger
	metrics        *metrics.Metrics
	clock          func() time.Time

	mu          sync.RWMutex
	book        optional.Option[types.OrderBook]
	lastTrade   optional.Option[types.TradeMatch]
	subscribers map[uint64]TradeHandler
	nextID      uint64
}

// NewBinanceFeed creates a feed over the production websocket service.
func NewBinanceFeed(opts BinanceFeedOptions) *BinanceFeed {
	return NewBinanceFeedWithWebSocket(opts, NewBinanceWebSocketService())
}

// NewBinanceFeedWithWebSocket creates a feed over a custom websocket service.
// This is used for testing with mock streams.
func NewBinanceFeedWithWebSocket(opts BinanceFeedOptions, ws BinanceWebSocketService) *BinanceFeed {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &BinanceFeed{
		product:        opts.Product,
		ws:             ws,
		reconnectDelay: opts.ReconnectDelay,
		maxReconnects:  opts.MaxReconnects,
		logger:         logger.OrNop(opts.Logger).Named("feed"),
		metrics:        opts.Metrics,
		clock:          clock,
		mu:             sync.RWMutex{},
		book:           optional.None[types.OrderBook](),
		lastTrade:      optional.None[types.TradeMatch](),
		subscribers:    make(map[uint64]TradeHandler),
		nextID:         0,
	}
}

// OrderBook implements Feed.
func (f *BinanceFeed) OrderBook() optional.Option[types.OrderBook] {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.book
}

// LastTrade implements Feed.
func (f *BinanceFeed) LastTrade() optional.Option[types.TradeMatch] {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.lastTrade
}

// Subscribe implements Feed. Handlers run on the stream goroutine and must not block.
func (f *BinanceFeed) Subscribe(handler TradeHandler) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subscribers[id] = handler
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// Run implements Feed. It subscribes both streams and, whenever either closes or fails,
// tears the session down, waits a backoff and subscribes again. The backoff is reset
// after every session that connected. Run returns nil once ctx is done, or an error
// when MaxReconnects consecutive attempts failed.
func (f *BinanceFeed) Run(ctx context.Context) error {
	bo := f.newBackOff()
	failures := 0

	for {
		connected, err := f.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if connected {
			bo.Reset()
			failures = 0
		} else {
			failures++
		}

		if f.maxReconnects > 0 && failures >= f.maxReconnects {
			return errors.Wrapf(errors.ErrCodeFeedConnectFailed, err, "giving up after %d failed connects", failures)
		}

		sleep := bo.NextBackOff()
		if sleep == backoff.Stop {
			sleep = binanceMaxReconnectInterval
		}

		f.logger.Warn("feed disconnected, reconnecting",
			zap.String("product", f.product),
			zap.Duration("backoff", sleep),
			zap.Error(err),
		)
		f.metrics.ObserveFeedReconnect()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

func (f *BinanceFeed) newBackOff() backoff.BackOff {
	if f.reconnectDelay > 0 {
		return backoff.NewConstantBackOff(f.reconnectDelay)
	}

	exp := backoff.NewExponentialBackOff()
	exp.MaxInterval = binanceMaxReconnectInterval

	return exp
}

// session runs one pair of stream subscriptions until one ends or ctx is done.
func (f *BinanceFeed) session(ctx context.Context) (bool, error) {
	errC := make(chan error, 1)
	onError := func(err error) {
		select {
		case errC <- err:
		default:
		}
	}

	depthDone, depthStop, err := f.ws.WsPartialDepthServe(f.product, BinanceDepthLevels, f.handleDepth, onError)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeFeedConnectFailed, "failed to subscribe depth stream", err)
	}

	tradeDone, tradeStop, err := f.ws.WsTradeServe(f.product, f.handleTrade, onError)
	if err != nil {
		close(depthStop)
		<-depthDone

		return false, errors.Wrap(errors.ErrCodeFeedConnectFailed, "failed to subscribe trade stream", err)
	}

	f.logger.Info("feed connected", zap.String("product", f.product))

	defer func() {
		close(depthStop)
		close(tradeStop)
		<-depthDone
		<-tradeDone
	}()

	select {
	case <-ctx.Done():
		return true, nil
	case <-depthDone:
		return true, errors.New(errors.ErrCodeFeedConnectFailed, "depth stream closed")
	case <-tradeDone:
		return true, errors.New(errors.ErrCodeFeedConnectFailed, "trade stream closed")
	case err := <-errC:
		return true, errors.Wrap(errors.ErrCodeFeedConnectFailed, "stream error", err)
	}
}

func (f *BinanceFeed) handleDepth(event *BinanceWsDepthEvent) {
	if event == nil {
		return
	}

	book := types.OrderBook{
		Product:  f.product,
		Sequence: event.LastUpdateID,
		Time:     f.clock(),
		Bids:     make([]types.PriceLevel, 0, len(event.Bids)),
		Asks:     make([]types.PriceLevel, 0, len(event.Asks)),
	}

	for _, bid := range event.Bids {
		book.Bids = append(book.Bids, types.PriceLevel{
			Price:      types.ParseDecimalOrZero(bid.Price),
			Size:       types.ParseDecimalOrZero(bid.Quantity),
			OrderCount: 0,
		})
	}

	for _, ask := range event.Asks {
		book.Asks = append(book.Asks, types.PriceLevel{
			Price:      types.ParseDecimalOrZero(ask.Price),
			Size:       types.ParseDecimalOrZero(ask.Quantity),
			OrderCount: 0,
		})
	}

	f.mu.Lock()
	f.book = optional.Some(book)
	f.mu.Unlock()
}

func (f *BinanceFeed) handleTrade(event *BinanceWsTradeEvent) {
	if event == nil {
		return
	}

	price := types.ParseDecimal(event.Price)
	if price.IsNone() {
		f.logger.Warn("dropping trade event",
			zap.Error(errors.Newf(errors.ErrCodeFeedMalformedEvent, "invalid trade price %q", event.Price)),
			zap.Int64("trade_id", event.TradeID),
		)

		return
	}

	trade := types.TradeMatch{
		TradeID: event.TradeID,
		Product: f.product,
		Price:   price.Unwrap(),
		Size:    types.ParseDecimalOrZero(event.Quantity),
		Time:    time.UnixMilli(event.TradeTime),
	}

	f.mu.Lock()
	f.lastTrade = optional.Some(trade)
	handlers := make([]TradeHandler, 0, len(f.subscribers))

	for _, handler := range f.subscribers {
		handlers = append(handlers, handler)
	}
	f.mu.Unlock()

	for _, handler := range handlers {
		handler(trade)
	}
}

// Ensure BinanceFeed implements Feed.
var _ Feed = (*BinanceFeed)(nil)
