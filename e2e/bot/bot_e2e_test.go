package bot_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-bot/e2e/bot/testhelper"
	"github.com/rxtech-lab/argo-bot/internal/bot"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/scheduler"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/stretchr/testify/suite"
)

// BotE2ETestSuite drives a bot end to end against an in-memory exchange.
type BotE2ETestSuite struct {
	suite.Suite
	exchange *testhelper.FakeExchange
	metrics  *metrics.Metrics
}

func TestBotE2ESuite(t *testing.T) {
	suite.Run(t, new(BotE2ETestSuite))
}

func (s *BotE2ETestSuite) SetupTest() {
	s.exchange = testhelper.NewFakeExchange(42, 3)
	s.metrics = metrics.NewMetrics()
}

func (s *BotE2ETestSuite) newBot(strat scheduler.Strategy) *bot.Bot {
	b, err := bot.New(bot.Options{
		Client:       s.exchange,
		Strategy:     strat,
		StrategyName: "e2e",
		Metrics:      s.metrics,
	})
	s.Require().NoError(err)

	return b
}

func (s *BotE2ETestSuite) TestCancelOneKeepsOrder() {
	b := s.newBot(scheduler.StrategyFunc(func(context.Context, scheduler.Context) error { return nil }))
	ctx := context.Background()

	b.Store().Refresh(ctx, types.IndicatorTypeOpenOrders)
	ids := types.OrderIDs(b.Store().OpenOrders().Data.Unwrap())
	s.Require().Len(ids, 3)

	s.Require().NoError(b.CancelOrder(ctx, ids[1]))
	b.Store().Refresh(ctx, types.IndicatorTypeOpenOrders)
	s.Equal([]string{ids[0], ids[2]}, types.OrderIDs(b.Store().OpenOrders().Data.Unwrap()))

	s.Require().NoError(b.CancelAllOrders(ctx))
	b.Store().Refresh(ctx, types.IndicatorTypeOpenOrders)
	s.Empty(b.Store().OpenOrders().Data.Unwrap())
}

func (s *BotE2ETestSuite) TestSlowStrategyNeverOverlaps() {
	s.exchange.Latency = 15 * time.Millisecond

	var active, overlaps atomic.Int32

	b := s.newBot(scheduler.StrategyFunc(func(ctx context.Context, bot scheduler.Context) error {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer active.Add(-1)

		bot.Store().RefreshAll(ctx)

		return nil
	}))

	s.Require().NoError(b.StartTrading(context.Background(), scheduler.TradingConfig{Interval: 2 * time.Millisecond}))
	s.Eventually(func() bool { return b.Stats().Skipped >= 3 && b.Stats().Runs >= 2 }, 5*time.Second, 5*time.Millisecond)
	s.Require().NoError(b.StopTrading(context.Background(), scheduler.StopOptions{Cancel: false}))
	b.Scheduler().Wait()

	stats := b.Stats()
	s.Zero(overlaps.Load())
	s.Equal(stats.Ticks, stats.Runs+stats.Skipped)
	s.Equal(float64(stats.Skipped), testutil.ToFloat64(s.metrics.SkippedTicks))

	_, ok := s.exchange.LastTicker()
	s.True(ok)
	s.True(b.Store().MidmarketPrice().Value.IsSome())
}

func (s *BotE2ETestSuite) TestFailingFetchesAreRecordedNotRaised() {
	s.exchange.FailFetches = true
	s.exchange.FailReason = "maintenance"

	b := s.newBot(scheduler.StrategyFunc(func(ctx context.Context, bot scheduler.Context) error {
		bot.Store().RefreshAll(ctx)

		return nil
	}))

	s.Require().NoError(b.StartTrading(context.Background(), scheduler.TradingConfig{Interval: 2 * time.Millisecond, MaxRuns: 2}))
	<-b.Scheduler().Done()
	s.Require().NoError(b.Close(context.Background()))

	s.EqualValues(0, b.Stats().Failures)
	s.Len(b.Store().Ticker().Errors, 2)
	s.Len(b.Store().OrderBook().Errors, 2)
	s.Len(b.Store().OpenOrders().Errors, 2)
	s.True(b.Store().MidmarketPrice().Value.IsNone())
	s.Equal(2.0, testutil.ToFloat64(s.metrics.RefreshFailures.WithLabelValues(string(types.IndicatorTypeTicker))))
}

func (s *BotE2ETestSuite) TestStopCancelFailureStillHalts() {
	s.exchange.FailCancelAll = true
	s.exchange.FailReason = "rejected"

	b := s.newBot(scheduler.StrategyFunc(func(context.Context, scheduler.Context) error { return nil }))

	s.Require().NoError(b.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Hour}))
	s.Error(b.StopTrading(context.Background(), scheduler.StopOptions{Cancel: true}))
	s.False(b.IsTrading())
	s.Len(s.exchange.Orders(), 3)

	runs := b.Stats().Ticks
	time.Sleep(20 * time.Millisecond)
	s.Equal(runs, b.Stats().Ticks)
}
