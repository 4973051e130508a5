// Package scheduler runs a strategy on a timer without ever overlapping two runs,
// and manages the trading start/stop lifecycle around it.
package scheduler

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-bot/internal/logger"
	"github.com/rxtech-lab/argo-bot/internal/metrics"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/internal/version"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// State is the trading lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateTrading  State = "trading"
	StateStopping State = "stopping"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// Options configures a Scheduler.
type Options struct {
	// Strategy is invoked once per non-skipped tick. Required.
	Strategy Strategy
	// StrategyName is reported in session stats
	StrategyName string
	// Context is handed to every strategy run
	Context Context
	// CancelAll is called by StopTrading when StopOptions.Cancel is set
	CancelAll func(ctx context.Context) error
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	// Rand draws random intervals. Defaults to the math/rand/v2 global source.
	Rand *rand.Rand
	// Clock stamps session stats. Defaults to time.Now.
	Clock func() time.Time
}

// timerHandle owns the tick loop of one trading session.
type timerHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler delivers ticks while trading and runs the strategy on a tick only when
// no earlier run is still in flight. Skipped ticks are dropped, never queued.
type Scheduler struct {
	strategy     Strategy
	strategyName string
	botCtx       Context
	cancelAll    func(ctx context.Context) error
	logger       *logger.Logger
	metrics      *metrics.Metrics
	clock        func() time.Time

	// lifecycle serializes StartTrading and StopTrading
	lifecycle sync.Mutex

	mu           sync.Mutex
	state        State
	timer        *timerHandle
	done         chan struct{}
	session      string
	sessionStart time.Time
	rng          *rand.Rand

	busy     atomic.Bool
	ticks    atomic.Int64
	skipped  atomic.Int64
	runs     atomic.Int64
	failures atomic.Int64
	inflight sync.WaitGroup
}

// New creates a stopped scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Strategy == nil {
		return nil, errors.New(errors.ErrCodeMissingStrategy, "scheduler requires a strategy")
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Scheduler{
		strategy:     opts.Strategy,
		strategyName: opts.StrategyName,
		botCtx:       opts.Context,
		cancelAll:    opts.CancelAll,
		logger:       logger.OrNop(opts.Logger).Named("scheduler"),
		metrics:      opts.Metrics,
		clock:        clock,
		lifecycle:    sync.Mutex{},
		mu:           sync.Mutex{},
		state:        StateStopped,
		timer:        nil,
		done:         nil,
		session:      "",
		sessionStart: time.Time{},
		rng:          opts.Rand,
		busy:         atomic.Bool{},
		ticks:        atomic.Int64{},
		skipped:      atomic.Int64{},
		runs:         atomic.Int64{},
		failures:     atomic.Int64{},
		inflight:     sync.WaitGroup{},
	}, nil
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// IsTrading reports whether ticks are being delivered.
func (s *Scheduler) IsTrading() bool {
	return s.State() == StateTrading
}

// IsBusy reports whether a strategy run is in flight.
func (s *Scheduler) IsBusy() bool {
	return s.busy.Load()
}

// Ticks returns the ticks delivered in the current or last session, skipped ones included.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Skipped returns the ticks dropped in the current or last session.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

// Runs returns the completed strategy runs in the current or last session.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// SessionID returns the id of the current or last trading session.
func (s *Scheduler) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session
}

// Stats returns the counters of the current or last trading session.
func (s *Scheduler) Stats() types.SessionStats {
	s.mu.Lock()
	session, start := s.session, s.sessionStart
	s.mu.Unlock()

	product := ""
	if s.botCtx != nil {
		product = s.botCtx.Product()
	}

	return types.SessionStats{
		ID:           session,
		Product:      product,
		Version:      version.GetVersion(),
		Strategy:     s.strategyName,
		SessionStart: start,
		LastUpdated:  s.clock(),
		Ticks:        s.ticks.Load(),
		Skipped:      s.skipped.Load(),
		Runs:         s.runs.Load(),
		Failures:     s.failures.Load(),
	}
}

// Done returns a channel closed when the current or last session stops delivering
// ticks. It is nil before the first StartTrading.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.done
}

// Wait blocks until no strategy run is in flight. Call it after StopTrading.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// StartTrading begins delivering ticks. It is a no-op when already trading. The state
// is Trading when it returns, before the first tick can fire.
func (s *Scheduler) StartTrading(ctx context.Context, config TradingConfig) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.IsTrading() {
		s.logger.Debug("start ignored, already trading", zap.String("session_id", s.SessionID()))

		return nil
	}

	if err := config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateStarting
	s.mu.Unlock()

	session := uuid.NewString()
	loopCtx, cancel := context.WithCancel(withSessionID(context.WithoutCancel(ctx), session))
	handle := &timerHandle{cancel: cancel, done: make(chan struct{})}

	s.ticks.Store(0)
	s.skipped.Store(0)
	s.runs.Store(0)
	s.failures.Store(0)

	s.mu.Lock()
	s.timer = handle
	s.done = handle.done
	s.session = session
	s.sessionStart = s.clock()
	s.state = StateTrading
	s.metrics.SetTrading(true)
	s.mu.Unlock()

	s.logger.Info("trading started",
		zap.String("session_id", session),
		zap.Duration("interval", config.Interval),
		zap.Duration("min_interval", config.MinInterval),
		zap.Duration("max_interval", config.MaxInterval),
		zap.Int("max_runs", config.MaxRuns),
	)

	go s.loop(loopCtx, handle, config, session)

	return nil
}

// StopTrading halts the timer. It is a no-op when not trading. With Cancel set, all
// open orders are cancelled first; a cancel failure is returned but the timer is
// halted regardless. No tick is delivered after it returns. A run in flight is not
// aborted.
func (s *Scheduler) StopTrading(ctx context.Context, opts StopOptions) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateTrading {
		s.mu.Unlock()

		return nil
	}

	s.state = StateStopping
	handle, session := s.timer, s.session
	s.mu.Unlock()

	var cancelErr error

	if opts.Cancel && s.cancelAll != nil {
		if err := s.cancelAll(ctx); err != nil {
			cancelErr = err
			s.logger.Error("cancel all orders failed, halting timer anyway",
				zap.String("session_id", session),
				zap.Error(err),
			)
		}
	}

	s.halt(handle)
	s.logger.Info("trading stopped",
		zap.String("session_id", session),
		zap.Bool("cancel", opts.Cancel),
		zap.Int64("runs", s.runs.Load()),
		zap.Int64("skipped", s.skipped.Load()),
	)

	return cancelErr
}

// release marks the scheduler stopped if handle is still its timer. It reports whether
// it did; a handle already replaced or released is left alone.
func (s *Scheduler) release(handle *timerHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != handle {
		return false
	}

	s.timer = nil
	s.state = StateStopped
	s.metrics.SetTrading(false)

	return true
}

// halt stops the tick loop, waits for it to exit, and marks the scheduler stopped.
// The loop may already have released the handle after its run budget was spent.
func (s *Scheduler) halt(handle *timerHandle) {
	handle.cancel()
	<-handle.done

	s.release(handle)
}

func (s *Scheduler) loop(ctx context.Context, handle *timerHandle, config TradingConfig, session string) {
	defer close(handle.done)
	defer handle.cancel()

	launched := 0

	for {
		timer := time.NewTimer(s.nextInterval(config))

		select {
		case <-ctx.Done():
			timer.Stop()

			return
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return
		}

		if s.tick(ctx, session) {
			launched++
		}

		if config.MaxRuns > 0 && launched >= config.MaxRuns {
			// the state is Stopped before done closes
			if s.release(handle) {
				s.logger.Info("max runs reached, trading stopped", zap.String("session_id", session))
			}

			return
		}
	}
}

// tick runs the strategy unless a run is already in flight. It reports whether a
// run was launched.
func (s *Scheduler) tick(ctx context.Context, session string) bool {
	s.ticks.Add(1)
	s.metrics.ObserveTick()

	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.metrics.ObserveSkippedTick()
		s.logger.Info("skipping round, previous run still busy", zap.String("session_id", session))

		return false
	}

	s.inflight.Add(1)

	go s.run(context.WithoutCancel(ctx), session)

	return true
}

func (s *Scheduler) run(ctx context.Context, session string) {
	defer s.inflight.Done()
	defer s.busy.Store(false)

	var (
		err error
		pc  panics.Catcher
	)

	pc.Try(func() {
		err = s.strategy.Run(ctx, s.botCtx)
	})

	outcome := metrics.OutcomeSuccess

	if recovered := pc.Recovered(); recovered != nil {
		outcome = metrics.OutcomePanicked
		err = errors.Wrap(errors.ErrCodeStrategyPanicked, "strategy panicked", recovered.AsError())
	} else if err != nil {
		outcome = metrics.OutcomeError
		err = errors.Wrap(errors.ErrCodeStrategyFailed, "strategy run failed", err)
	}

	s.runs.Add(1)
	s.metrics.ObserveStrategyRun(outcome)

	if err != nil {
		s.failures.Add(1)
		s.logger.Error("strategy run failed", zap.String("session_id", session), zap.Error(err))

		return
	}

	s.logger.Debug("strategy run completed", zap.String("session_id", session))
}

func (s *Scheduler) nextInterval(config TradingConfig) time.Duration {
	if !config.Random() {
		return config.Interval
	}

	span := int64(config.MaxInterval - config.MinInterval)
	if span <= 0 {
		return config.MinInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng != nil {
		return config.MinInterval + time.Duration(s.rng.Int64N(span+1))
	}

	return config.MinInterval + time.Duration(rand.Int64N(span+1))
}
