package scheduler

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-bot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type TradingConfigTestSuite struct {
	suite.Suite
}

func TestTradingConfigSuite(t *testing.T) {
	suite.Run(t, new(TradingConfigTestSuite))
}

func (suite *TradingConfigTestSuite) TestValidate() {
	tests := []struct {
		name    string
		config  TradingConfig
		wantErr bool
	}{
		{name: "fixed interval", config: TradingConfig{Interval: time.Second}},
		{name: "random interval", config: TradingConfig{MinInterval: time.Second, MaxInterval: 2 * time.Second}},
		{name: "random interval with equal bounds", config: TradingConfig{MinInterval: time.Second, MaxInterval: time.Second}},
		{name: "fixed interval with max runs", config: TradingConfig{Interval: time.Second, MaxRuns: 10}},
		{name: "empty", config: TradingConfig{}, wantErr: true},
		{name: "both fixed and random", config: TradingConfig{Interval: time.Second, MinInterval: time.Second, MaxInterval: time.Second}, wantErr: true},
		{name: "max below min", config: TradingConfig{MinInterval: 2 * time.Second, MaxInterval: time.Second}, wantErr: true},
		{name: "max only", config: TradingConfig{MaxInterval: time.Second}, wantErr: true},
		{name: "negative interval", config: TradingConfig{Interval: -time.Second}, wantErr: true},
		{name: "negative max runs", config: TradingConfig{Interval: time.Second, MaxRuns: -1}, wantErr: true},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			err := tt.config.Validate()
			if tt.wantErr {
				suite.Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidInterval))

				return
			}

			suite.NoError(err)
		})
	}
}

func (suite *TradingConfigTestSuite) TestNextIntervalFixed() {
	s := &Scheduler{}

	suite.Equal(time.Second, s.nextInterval(TradingConfig{Interval: time.Second}))
}

func (suite *TradingConfigTestSuite) TestNextIntervalRandomWithinBounds() {
	s := &Scheduler{rng: rand.New(rand.NewPCG(42, 7))}
	config := TradingConfig{MinInterval: 10 * time.Millisecond, MaxInterval: 20 * time.Millisecond}

	seen := make(map[time.Duration]struct{})

	for range 1000 {
		d := s.nextInterval(config)
		suite.GreaterOrEqual(d, config.MinInterval)
		suite.LessOrEqual(d, config.MaxInterval)

		seen[d] = struct{}{}
	}

	suite.Greater(len(seen), 1, "intervals should be drawn independently per tick")
}

func (suite *TradingConfigTestSuite) TestNextIntervalEqualBounds() {
	s := &Scheduler{}
	config := TradingConfig{MinInterval: time.Second, MaxInterval: time.Second}

	suite.Equal(time.Second, s.nextInterval(config))
}
