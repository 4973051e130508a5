package bot_test

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-bot/e2e/bot/mockserver"
	"github.com/rxtech-lab/argo-bot/internal/bot"
	"github.com/rxtech-lab/argo-bot/internal/exchange"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/scheduler"
	"github.com/rxtech-lab/argo-bot/internal/strategy"
	"github.com/rxtech-lab/argo-bot/internal/types"
	argoErrors "github.com/rxtech-lab/argo-bot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// BinanceMockServerTestSuite runs the bot's real Binance client and feed against the
// mock Binance server.
type BinanceMockServerTestSuite struct {
	suite.Suite
	server    *mockserver.MockBinanceServer
	metrics   *metrics.Metrics
	wsBaseURL string
}

func TestBinanceMockServerSuite(t *testing.T) {
	suite.Run(t, new(BinanceMockServerTestSuite))
}

func (s *BinanceMockServerTestSuite) SetupSuite() {
	s.wsBaseURL = binance.BaseWsMainURL
}

func (s *BinanceMockServerTestSuite) TearDownSuite() {
	binance.BaseWsMainURL = s.wsBaseURL
}

func (s *BinanceMockServerTestSuite) SetupTest() {
	s.server = mockserver.NewMockBinanceServer(mockserver.ServerConfig{
		Product:        "BTCUSDT",
		InitialPrice:   402.5,
		Levels:         5,
		Seed:           12345,
		StreamInterval: 20 * time.Millisecond,
	})
	s.Require().NoError(s.server.Start(":0"))

	binance.BaseWsMainURL = s.server.WebSocketURL()
	s.metrics = metrics.NewMetrics()
}

func (s *BinanceMockServerTestSuite) TearDownTest() {
	s.server.Stop()
}

func (s *BinanceMockServerTestSuite) newBot(feedEnabled bool, strat scheduler.Strategy) *bot.Bot {
	b, err := bot.New(bot.Options{
		Product: "BTCUSDT",
		Credentials: &exchange.Credentials{
			APIKey:    "mock-api-key",
			SecretKey: "mock-secret-key",
			BaseURL:   s.server.BaseURL(),
		},
		FeedEnabled:        feedEnabled,
		FeedReconnectDelay: 20 * time.Millisecond,
		Strategy:           strat,
		StrategyName:       "e2e",
		Metrics:            s.metrics,
	})
	s.Require().NoError(err)

	return b
}

func pinnedBook() types.OrderBook {
	return types.OrderBook{
		Product: "BTCUSDT",
		Bids:    []types.PriceLevel{{Price: decimal.RequireFromString("402.05"), Size: decimal.NewFromInt(1)}},
		Asks:    []types.PriceLevel{{Price: decimal.RequireFromString("403.05"), Size: decimal.NewFromInt(1)}},
	}
}

func (s *BinanceMockServerTestSuite) TestRefreshAllOverREST() {
	s.server.SetOrderBook(pinnedBook())
	s.server.AddOrder(types.SideBuy, 400, 1)

	b := s.newBot(false, strategy.RefreshOnly{})
	ctx := context.Background()

	b.Store().RefreshAll(ctx)

	ticker := b.Store().Ticker()
	s.Require().Empty(ticker.Errors)
	s.True(ticker.Data.Unwrap().Price.Equal(decimal.RequireFromString("402.5")))

	book := b.Store().OrderBook()
	s.Require().Empty(book.Errors)
	s.Len(book.Data.Unwrap().Bids, 1)

	mid := b.Store().MidmarketPrice()
	s.True(mid.Value.Unwrap().Equal(decimal.RequireFromString("402.55")))

	orders := b.Store().OpenOrders()
	s.Require().Empty(orders.Errors)
	s.Len(orders.Data.Unwrap(), 1)
}

func (s *BinanceMockServerTestSuite) TestCancelOneThenAll() {
	first := s.server.AddOrder(types.SideBuy, 400, 1)
	second := s.server.AddOrder(types.SideBuy, 401, 1)
	third := s.server.AddOrder(types.SideSell, 404, 1)

	b := s.newBot(false, strategy.RefreshOnly{})
	ctx := context.Background()

	s.Require().NoError(b.CancelOrder(ctx, second))
	b.Store().Refresh(ctx, types.IndicatorTypeOpenOrders)
	s.Equal([]string{first, third}, types.OrderIDs(b.Store().OpenOrders().Data.Unwrap()))

	s.NoError(b.CancelOrder(ctx, "999999"))

	s.Require().NoError(b.CancelAllOrders(ctx))
	b.Store().Refresh(ctx, types.IndicatorTypeOpenOrders)
	s.Empty(b.Store().OpenOrders().Data.Unwrap())

	s.NoError(b.CancelAllOrders(ctx))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.CancelFailures))
}

func (s *BinanceMockServerTestSuite) TestRefreshFailureIsRecorded() {
	b := s.newBot(false, strategy.RefreshOnly{})
	s.server.Stop()

	b.Store().Refresh(context.Background(), types.IndicatorTypeTicker)

	ticker := b.Store().Ticker()
	s.True(ticker.Data.IsNone())
	s.Require().Len(ticker.Errors, 1)
	s.True(argoErrors.HasCode(ticker.Errors[0].Err, argoErrors.ErrCodeTickerFetchFailed))
}

func (s *BinanceMockServerTestSuite) TestStopWithFailingCancelStillHalts() {
	s.server.AddOrder(types.SideBuy, 400, 1)
	s.server.SetFailCancelAll(true)

	b := s.newBot(false, strategy.RefreshOnly{})
	ctx := context.Background()

	s.Require().NoError(b.StartTrading(ctx, scheduler.TradingConfig{Interval: 10 * time.Millisecond}))
	s.Eventually(func() bool { return b.Stats().Runs >= 1 }, 2*time.Second, 5*time.Millisecond)

	err := b.StopTrading(ctx, scheduler.StopOptions{Cancel: true})
	s.Error(err)
	s.True(argoErrors.HasCode(err, argoErrors.ErrCodeCancelAllFailed))
	s.False(b.IsTrading())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CancelFailures))
	s.Len(s.server.OpenOrders(), 1)

	s.NoError(b.Close(ctx))
}

func (s *BinanceMockServerTestSuite) TestLiveFeed() {
	s.server.SetOrderBook(pinnedBook())

	b := s.newBot(true, strategy.RefreshOnly{})
	b.Connect(context.Background())
	defer b.Close(context.Background())

	s.Eventually(func() bool {
		return b.Store().LiveOrderBook().IsSome() && b.Store().Price().Value.IsSome()
	}, 5*time.Second, 10*time.Millisecond)

	mid := b.Store().MidmarketPrice()
	s.True(mid.Value.Unwrap().Equal(decimal.RequireFromString("402.55")))

	b.Store().Refresh(context.Background(), types.IndicatorTypeOrderBook)
	book := b.Store().OrderBook()
	s.Empty(book.Errors)
	s.Len(book.Data.Unwrap().Asks, 1)
}

func (s *BinanceMockServerTestSuite) TestLiveFeedReconnects() {
	b := s.newBot(true, strategy.RefreshOnly{})
	b.Connect(context.Background())
	defer b.Close(context.Background())

	s.Eventually(func() bool { return s.server.Connections() == 2 }, 5*time.Second, 10*time.Millisecond)

	s.server.DropConnections()

	s.Eventually(func() bool {
		return testutil.ToFloat64(s.metrics.FeedReconnects) >= 1 && s.server.Connections() == 2
	}, 5*time.Second, 10*time.Millisecond)
	s.NoError(b.FeedErr())
}
