package submission

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrServer is the failure produced by the simulated acceptor.
var ErrServer = errors.New("submission: server error")

const (
	DefaultDelay       = 2 * time.Second
	DefaultSuccessRate = 0.9
)

// SimulatedAcceptor stands in for a server: it answers after a fixed delay
// and succeeds with a configured probability.
type SimulatedAcceptor struct {
	delay  time.Duration
	rate   float64
	random func() float64
	now    func() time.Time
}

// SimulatedOption configures a SimulatedAcceptor.
type SimulatedOption func(*SimulatedAcceptor)

// WithDelay sets the response delay.
func WithDelay(d time.Duration) SimulatedOption {
	return func(s *SimulatedAcceptor) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithSuccessRate sets the probability, in [0, 1], of a successful answer.
func WithSuccessRate(rate float64) SimulatedOption {
	return func(s *SimulatedAcceptor) {
		switch {
		case rate < 0:
			s.rate = 0
		case rate > 1:
			s.rate = 1
		default:
			s.rate = rate
		}
	}
}

// WithRandom replaces the random source. fn must return values in [0, 1).
func WithRandom(fn func() float64) SimulatedOption {
	return func(s *SimulatedAcceptor) {
		if fn != nil {
			s.random = fn
		}
	}
}

// WithNow replaces the clock used to mint receipt ids.
func WithNow(now func() time.Time) SimulatedOption {
	return func(s *SimulatedAcceptor) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSimulatedAcceptor returns an acceptor with a 2s delay and a 0.9
// success rate unless overridden.
func NewSimulatedAcceptor(opts ...SimulatedOption) *SimulatedAcceptor {
	s := &SimulatedAcceptor{
		delay:  DefaultDelay,
		rate:   DefaultSuccessRate,
		random: rand.Float64,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Accept waits for the delay, then succeeds with an id of the form
// ST<unix-millis> or fails with ErrServer.
func (s *SimulatedAcceptor) Accept(ctx context.Context, _ Record) (Receipt, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	if s.random() >= s.rate {
		return Receipt{}, ErrServer
	}
	return Receipt{ID: fmt.Sprintf("ST%d", s.now().UnixMilli())}, nil
}
