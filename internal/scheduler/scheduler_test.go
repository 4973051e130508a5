package scheduler_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-bot/internal/indicator"
	"github.com/rxtech-lab/argo-bot/internal/logger"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/scheduler"
	"github.com/rxtech-lab/argo-bot/mocks"
	argoErrors "github.com/rxtech-lab/argo-bot/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeContext struct{}

func (fakeContext) Product() string { return "BTCUSDT" }
func (fakeContext) Store() *indicator.Store { return nil }
func (fakeContext) CancelOrder(context.Context, string) error { return nil }
func (fakeContext) CancelAllOrders(context.Context) error { return nil }
func (fakeContext) IsTrading() bool { return false }
func (fakeContext) Logger() *logger.Logger { return logger.NewNopLogger() }

type interval struct {
	start time.Time
	end   time.Time
}

type SchedulerTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	metrics *metrics.Metrics
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.metrics = metrics.NewMetrics()
}

func (suite *SchedulerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *SchedulerTestSuite) newScheduler(strategy scheduler.Strategy, cancelAll func(context.Context) error) *scheduler.Scheduler {
	s, err := scheduler.New(scheduler.Options{
		Strategy:     strategy,
		StrategyName: "test",
		Context:      fakeContext{},
		CancelAll:    cancelAll,
		Metrics:      suite.metrics,
		Rand:         rand.New(rand.NewPCG(1, 2)),
	})
	suite.Require().NoError(err)

	return s
}

func noop(context.Context, scheduler.Context) error { return nil }

func (suite *SchedulerTestSuite) stop(s *scheduler.Scheduler) {
	suite.NoError(s.StopTrading(context.Background(), scheduler.StopOptions{}))
	s.Wait()
}

func (suite *SchedulerTestSuite) TestNewRequiresStrategy() {
	s, err := scheduler.New(scheduler.Options{})
	suite.Nil(s)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeMissingStrategy))
}

func (suite *SchedulerTestSuite) TestStartIsObservableBeforeReturn() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)
	suite.Equal(scheduler.StateStopped, s.State())

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Hour}))

	suite.True(s.IsTrading())
	suite.Equal("trading", s.State().String())
	suite.NotEmpty(s.SessionID())
	suite.Equal(float64(1), testutil.ToFloat64(suite.metrics.Trading))

	suite.stop(s)
	suite.Equal(scheduler.StateStopped, s.State())
	suite.Equal(float64(0), testutil.ToFloat64(suite.metrics.Trading))
}

func (suite *SchedulerTestSuite) TestInvalidConfigStaysStopped() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)

	err := s.StartTrading(context.Background(), scheduler.TradingConfig{})
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidInterval))
	suite.False(s.IsTrading())
}

func (suite *SchedulerTestSuite) TestStartIsIdempotent() {
	var calls atomic.Int64

	s := suite.newScheduler(scheduler.StrategyFunc(func(context.Context, scheduler.Context) error {
		calls.Add(1)
		return nil
	}), nil)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: 20 * time.Millisecond}))
	session := s.SessionID()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			suite.NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond}))
		}()
	}
	wg.Wait()

	suite.True(s.IsTrading())
	suite.Equal(session, s.SessionID())

	time.Sleep(110 * time.Millisecond)
	suite.stop(s)

	// One 20ms timer fires about five times in 110ms; a second timer at 1ms would fire ~100 times.
	suite.LessOrEqual(s.Ticks(), int64(6))
	suite.Equal(calls.Load(), s.Runs())
}

func (suite *SchedulerTestSuite) TestStopWhenNotTradingIsNoop() {
	cancelCalls := 0
	s := suite.newScheduler(scheduler.StrategyFunc(noop), func(context.Context) error {
		cancelCalls++
		return errors.New("should not be called")
	})

	suite.NoError(s.StopTrading(context.Background(), scheduler.StopOptions{Cancel: true}))
	suite.NoError(s.StopTrading(context.Background(), scheduler.StopOptions{Cancel: false}))
	suite.Equal(0, cancelCalls)
	suite.Equal(scheduler.StateStopped, s.State())
}

func (suite *SchedulerTestSuite) TestStrategyRunsNeverOverlap() {
	var (
		mu       sync.Mutex
		runs     []interval
		inFlight atomic.Int32
		overlaps atomic.Int32
	)

	s := suite.newScheduler(scheduler.StrategyFunc(func(context.Context, scheduler.Context) error {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}

		start := time.Now()
		time.Sleep(15 * time.Millisecond)
		end := time.Now()

		inFlight.Add(-1)

		mu.Lock()
		runs = append(runs, interval{start: start, end: end})
		mu.Unlock()

		return nil
	}), nil)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: 2 * time.Millisecond}))
	time.Sleep(200 * time.Millisecond)
	suite.stop(s)

	mu.Lock()
	defer mu.Unlock()

	suite.Zero(overlaps.Load())
	suite.NotEmpty(runs)

	for i := 1; i < len(runs); i++ {
		suite.False(runs[i].start.Before(runs[i-1].end), "run %d started before run %d ended", i, i-1)
	}

	suite.Positive(s.Skipped())
	suite.Equal(s.Ticks(), s.Runs()+s.Skipped())
	suite.Equal(int64(len(runs)), s.Runs())
	suite.Equal(float64(s.Skipped()), testutil.ToFloat64(suite.metrics.SkippedTicks))
}

func (suite *SchedulerTestSuite) TestSkippedTickIsLogged() {
	core, logs := observer.New(zap.InfoLevel)
	release := make(chan struct{})

	s, err := scheduler.New(scheduler.Options{
		Strategy: scheduler.StrategyFunc(func(context.Context, scheduler.Context) error {
			<-release
			return nil
		}),
		Context: fakeContext{},
		Logger:  &logger.Logger{Logger: zap.New(core)},
	})
	suite.Require().NoError(err)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond}))
	suite.Eventually(func() bool {
		return logs.FilterMessage("skipping round, previous run still busy").Len() > 0
	}, time.Second, time.Millisecond)

	suite.True(s.IsBusy())
	suite.NoError(s.StopTrading(context.Background(), scheduler.StopOptions{}))
	close(release)
	s.Wait()
	suite.False(s.IsBusy())
}

func (suite *SchedulerTestSuite) TestStopWithCancelFailureStillHalts() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), func(context.Context) error {
		return errors.New("exchange unavailable")
	})

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond}))
	time.Sleep(10 * time.Millisecond)

	err := s.StopTrading(context.Background(), scheduler.StopOptions{Cancel: true})
	suite.EqualError(err, "exchange unavailable")
	suite.False(s.IsTrading())

	s.Wait()
	ticks := s.Ticks()
	time.Sleep(20 * time.Millisecond)
	suite.Equal(ticks, s.Ticks())
}

func (suite *SchedulerTestSuite) TestStopWithCancelCancelsFirst() {
	var (
		s        *scheduler.Scheduler
		stateAt  scheduler.State
		canceled bool
	)

	s = suite.newScheduler(scheduler.StrategyFunc(noop), func(context.Context) error {
		canceled = true
		stateAt = s.State()
		return nil
	})

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Hour}))
	suite.NoError(s.StopTrading(context.Background(), scheduler.StopOptions{Cancel: true}))

	suite.True(canceled)
	suite.Equal(scheduler.StateStopping, stateAt)
	suite.Equal(scheduler.StateStopped, s.State())
}

func (suite *SchedulerTestSuite) TestStrategyErrorReleasesBusy() {
	strategy := mocks.NewMockStrategy(suite.ctrl)
	strategy.EXPECT().Run(gomock.Any(), gomock.Any()).Return(errors.New("strategy failed")).MinTimes(2)

	s := suite.newScheduler(strategy, nil)
	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond}))

	suite.Eventually(func() bool { return s.Runs() >= 2 }, time.Second, time.Millisecond)
	suite.stop(s)

	suite.Equal(float64(s.Runs()), testutil.ToFloat64(suite.metrics.StrategyRuns.WithLabelValues(metrics.OutcomeError)))
	suite.Equal(s.Runs(), s.Stats().Failures)
}

func (suite *SchedulerTestSuite) TestStrategyPanicReleasesBusy() {
	strategy := mocks.NewMockStrategy(suite.ctrl)
	strategy.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, scheduler.Context) error {
			panic("strategy bug")
		},
	).MinTimes(2)

	s := suite.newScheduler(strategy, nil)
	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond}))

	suite.Eventually(func() bool { return s.Runs() >= 2 }, time.Second, time.Millisecond)
	suite.stop(s)

	suite.False(s.IsBusy())
	suite.Equal(float64(s.Runs()), testutil.ToFloat64(suite.metrics.StrategyRuns.WithLabelValues(metrics.OutcomePanicked)))
}

func (suite *SchedulerTestSuite) TestMaxRunsSelfStops() {
	cancelCalls := 0
	s := suite.newScheduler(scheduler.StrategyFunc(noop), func(context.Context) error {
		cancelCalls++
		return nil
	})

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond, MaxRuns: 3}))

	suite.Eventually(func() bool { return !s.IsTrading() }, time.Second, time.Millisecond)
	s.Wait()

	suite.Equal(int64(3), s.Runs())
	suite.Equal(0, cancelCalls)
	suite.Equal(scheduler.StateStopped, s.State())
}

func (suite *SchedulerTestSuite) TestDoneClosesWhenTicksStop() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)
	suite.Nil(s.Done())

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond, MaxRuns: 2}))

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		suite.FailNow("session did not end")
	}

	suite.Eventually(func() bool { return s.State() == scheduler.StateStopped }, time.Second, time.Millisecond)
	s.Wait()
	suite.Equal(int64(2), s.Runs())
}

func (suite *SchedulerTestSuite) TestStoppedWhenDoneCloses() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond, MaxRuns: 1}))
	<-s.Done()

	suite.False(s.IsTrading())
	suite.Equal(scheduler.StateStopped, s.State())
	suite.Equal(0.0, testutil.ToFloat64(suite.metrics.Trading))
}

func (suite *SchedulerTestSuite) TestRestartAfterMaxRuns() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)

	for i := 0; i < 20; i++ {
		suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond, MaxRuns: 1}))
		<-s.Done()

		suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Hour}))
		time.Sleep(10 * time.Millisecond)
		suite.Require().True(s.IsTrading(), "restart %d was lost", i)
		suite.Equal(1.0, testutil.ToFloat64(suite.metrics.Trading))

		suite.Require().NoError(s.StopTrading(context.Background(), scheduler.StopOptions{Cancel: false}))
		s.Wait()
	}
}

func (suite *SchedulerTestSuite) TestRandomIntervalTrades() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{
		MinInterval: time.Millisecond,
		MaxInterval: 3 * time.Millisecond,
	}))

	suite.Eventually(func() bool { return s.Runs() >= 3 }, time.Second, time.Millisecond)
	suite.stop(s)
}

func (suite *SchedulerTestSuite) TestStopDoesNotAbortInFlightRun() {
	started := make(chan struct{})
	release := make(chan struct{})
	result := make(chan error, 1)

	var sessionSeen string

	s := suite.newScheduler(scheduler.StrategyFunc(func(ctx context.Context, _ scheduler.Context) error {
		sessionSeen = scheduler.SessionID(ctx)
		close(started)
		<-release
		result <- ctx.Err()

		return nil
	}), nil)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond, MaxRuns: 1}))
	<-started

	session := s.SessionID()
	suite.NoError(s.StopTrading(context.Background(), scheduler.StopOptions{}))
	suite.True(s.IsBusy())

	close(release)
	s.Wait()

	suite.NoError(<-result)
	suite.Equal(session, sessionSeen)
	suite.False(s.IsBusy())
}

func (suite *SchedulerTestSuite) TestRestartStartsNewSession() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Hour}))
	first := s.SessionID()
	suite.stop(s)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Hour}))
	suite.NotEqual(first, s.SessionID())
	suite.stop(s)
}

func (suite *SchedulerTestSuite) TestStats() {
	s := suite.newScheduler(scheduler.StrategyFunc(noop), nil)

	suite.Require().NoError(s.StartTrading(context.Background(), scheduler.TradingConfig{Interval: time.Millisecond, MaxRuns: 2}))
	suite.Eventually(func() bool { return !s.IsTrading() }, time.Second, time.Millisecond)
	s.Wait()

	stats := s.Stats()
	suite.Equal(s.SessionID(), stats.ID)
	suite.Equal("BTCUSDT", stats.Product)
	suite.Equal("test", stats.Strategy)
	suite.Equal(int64(2), stats.Runs)
	suite.Zero(stats.Failures)
	suite.False(stats.SessionStart.IsZero())
}
