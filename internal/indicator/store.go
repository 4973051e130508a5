package indicator

import (
	"context"
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bot/internal/logger"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// half is the midmarket weight: mid = half * (bid + ask).
var half = decimal.New(5, -1)

// Fetcher is the part of the exchange client the store refreshes from.
type Fetcher interface {
	FetchTicker(ctx context.Context, product string) (types.Ticker, error)
	FetchOrderBook(ctx context.Context, product string) (types.OrderBook, error)
	FetchOpenOrders(ctx context.Context, product string) ([]types.Order, error)
}

// LiveSource is a push-based market view. When set, the order book is read from it
// instead of fetched, and its last trade and book feed the derived prices.
type LiveSource interface {
	OrderBook() optional.Option[types.OrderBook]
	LastTrade() optional.Option[types.TradeMatch]
}

// Option configures a Store.
type Option func(*Store)

// WithLiveSource reads the order book from a live feed.
func WithLiveSource(live LiveSource) Option {
	return func(s *Store) {
		s.live = live
	}
}

// WithLogger sets the logger for failed refreshes.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		s.logger = logger.OrNop(l)
	}
}

// WithMetrics counts failed refreshes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Store tracks freshness and error history for one product's indicators.
// Records are only mutated by Refresh; readers may observe a partially refreshed
// state during a concurrent RefreshAll.
type Store struct {
	product string
	fetcher Fetcher
	live    LiveSource
	logger  *logger.Logger
	metrics *metrics.Metrics
	clock   func() time.Time

	ticker     *record[types.Ticker]
	orderBook  *record[types.OrderBook]
	openOrders *record[[]types.Order]
}

// NewStore creates an empty store. Every record starts with no data and no errors.
func NewStore(product string, fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		product:    product,
		fetcher:    fetcher,
		live:       nil,
		logger:     logger.NewNopLogger(),
		metrics:    nil,
		clock:      time.Now,
		ticker:     newRecord[types.Ticker](nil),
		orderBook:  newRecord(cloneOrderBook),
		openOrders: newRecord(slices.Clone[[]types.Order, types.Order]),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.Named("indicator")

	return s
}

// Product returns the product the store tracks.
func (s *Store) Product() string {
	return s.product
}

// Refresh fetches one indicator and records the outcome. It never returns an error:
// failures, including panics in the fetch, are appended to the indicator's error log.
func (s *Store) Refresh(ctx context.Context, indicator types.IndicatorType) {
	switch indicator {
	case types.IndicatorTypeTicker:
		refresh(ctx, s, indicator, s.ticker, func(ctx context.Context) (types.Ticker, error) {
			return s.fetcher.FetchTicker(ctx, s.product)
		})
	case types.IndicatorTypeOrderBook:
		refresh(ctx, s, indicator, s.orderBook, s.fetchOrderBook)
	case types.IndicatorTypeOpenOrders:
		refresh(ctx, s, indicator, s.openOrders, func(ctx context.Context) ([]types.Order, error) {
			return s.fetcher.FetchOpenOrders(ctx, s.product)
		})
	default:
		s.logger.Warn("refresh skipped",
			zap.Error(errors.Newf(errors.ErrCodeUnknownIndicator, "unknown indicator %q", indicator)),
			zap.String("product", s.product),
		)
	}
}

// RefreshAll refreshes every indicator concurrently and returns once all of them
// resolved. Each record is updated as soon as its own fetch resolves.
func (s *Store) RefreshAll(ctx context.Context) {
	var wg conc.WaitGroup

	for _, indicator := range types.IndicatorTypes() {
		wg.Go(func() {
			s.Refresh(ctx, indicator)
		})
	}

	wg.Wait()
}

// Ticker returns a copy of the ticker record.
func (s *Store) Ticker() Snapshot[types.Ticker] {
	return s.ticker.snapshot()
}

// OrderBook returns a copy of the order book record.
func (s *Store) OrderBook() Snapshot[types.OrderBook] {
	return s.orderBook.snapshot()
}

// OpenOrders returns a copy of the open orders record.
func (s *Store) OpenOrders() Snapshot[[]types.Order] {
	return s.openOrders.snapshot()
}

// LiveOrderBook returns the live feed's current book, absent without a feed or
// before its first update.
func (s *Store) LiveOrderBook() optional.Option[types.OrderBook] {
	if s.live == nil {
		return optional.None[types.OrderBook]()
	}

	book := s.live.OrderBook()
	if book.IsNone() {
		return book
	}

	return optional.Some(cloneOrderBook(book.Unwrap()))
}

// Price is the last trade price: the live feed's when it has one, otherwise the
// ticker's. Updated is the time of whichever trade was used. Errors always come
// from the ticker record, since the feed keeps no error log.
func (s *Store) Price() Derived {
	ticker := s.ticker.snapshot()
	derived := Derived{
		Value:   optional.None[decimal.Decimal](),
		Updated: ticker.Updated,
		Errors:  ticker.Errors,
	}

	if s.live != nil {
		if last := s.live.LastTrade(); last.IsSome() {
			trade := last.Unwrap()
			derived.Value = optional.Some(trade.Price)
			derived.Updated = optional.Some(trade.Time)

			return derived
		}
	}

	if ticker.Data.IsSome() {
		derived.Value = optional.Some(ticker.Data.Unwrap().Price)
	}

	return derived
}

// MidmarketPrice is 0.5 * (best bid + best ask). The live book is used when wired
// and both of its sides are present, otherwise the ticker's bid and ask. A missing
// side makes the value absent.
func (s *Store) MidmarketPrice() Derived {
	if s.live != nil {
		if book := s.live.OrderBook(); book.IsSome() {
			b := book.Unwrap()
			bid, ask := b.BestBid(), b.BestAsk()

			if bid.IsSome() && ask.IsSome() {
				return Derived{
					Value:   optional.Some(midmarket(bid.Unwrap().Price, ask.Unwrap().Price)),
					Updated: optional.Some(b.Time),
					Errors:  s.orderBook.errorLog(),
				}
			}
		}
	}

	ticker := s.ticker.snapshot()
	derived := Derived{
		Value:   optional.None[decimal.Decimal](),
		Updated: ticker.Updated,
		Errors:  ticker.Errors,
	}

	if ticker.Data.IsNone() {
		return derived
	}

	t := ticker.Data.Unwrap()
	if t.Bid.IsSome() && t.Ask.IsSome() {
		derived.Value = optional.Some(midmarket(t.Bid.Unwrap(), t.Ask.Unwrap()))
	}

	return derived
}

func (s *Store) fetchOrderBook(ctx context.Context) (types.OrderBook, error) {
	if s.live == nil {
		return s.fetcher.FetchOrderBook(ctx, s.product)
	}

	book := s.live.OrderBook()
	if book.IsNone() {
		return types.OrderBook{}, errors.Newf(errors.ErrCodeFeedNotReady, "live order book for %s not synchronized yet", s.product)
	}

	return cloneOrderBook(book.Unwrap()), nil
}

// refresh runs fetch and records its outcome on rec.
func refresh[T any](
	ctx context.Context,
	s *Store,
	indicator types.IndicatorType,
	rec *record[T],
	fetch func(context.Context) (T, error),
) {
	var (
		value T
		err   error
		pc    panics.Catcher
	)

	pc.Try(func() {
		value, err = fetch(ctx)
	})

	if recovered := pc.Recovered(); recovered != nil {
		err = errors.Wrap(errors.ErrCodeFetchPanicked, "indicator fetch panicked", recovered.AsError())
	}

	now := s.clock()

	if err != nil {
		rec.fail(now, err)
		s.metrics.ObserveRefreshFailure(string(indicator))
		s.logger.Warn("indicator refresh failed",
			zap.String("indicator", string(indicator)),
			zap.String("product", s.product),
			zap.Error(err),
		)

		return
	}

	rec.succeed(now, value)
}

func midmarket(bid, ask decimal.Decimal) decimal.Decimal {
	return bid.Add(ask).Mul(half)
}

func cloneOrderBook(book types.OrderBook) types.OrderBook {
	book.Bids = slices.Clone(book.Bids)
	book.Asks = slices.Clone(book.Asks)

	return book
}
