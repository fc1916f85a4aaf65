package submission

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/rules"
)

// Banner texts shown by the coordinator.
const (
	InvalidMessage = "Please correct the errors above before submitting."
	SuccessMessage = "Application submitted successfully! You will receive a confirmation email shortly."
	FailureMessage = "There was an error submitting your application. Please try again."
)

// DefaultResetDelay is how long a successful form stays on screen before it
// is reset.
const DefaultResetDelay = 3 * time.Second

// ResetTask names the scheduled post-success reset.
const ResetTask = "submission.reset"

// State is the coordinator's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// OutcomeKind classifies how a Submit call ended.
type OutcomeKind string

const (
	// OutcomeRejected means another submission was already in flight.
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeInvalid  OutcomeKind = "invalid"
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeFailure  OutcomeKind = "failure"
)

// Outcome describes one Submit call.
type Outcome struct {
	Kind         OutcomeKind    `json:"kind"`
	AttemptID    string         `json:"attempt,omitempty"`
	Receipt      Receipt        `json:"receipt,omitempty"`
	FirstInvalid string         `json:"firstInvalid,omitempty"`
	Results      []rules.Result `json:"results,omitempty"`
	Err          error          `json:"-"`
}

// DraftClearer removes the saved draft after a successful submission.
type DraftClearer interface {
	Clear(ctx context.Context)
}

// Scheduler defers the post-success reset.
type Scheduler interface {
	After(name string, d time.Duration, fn func()) error
}

// Coordinator runs submission attempts.
type Coordinator struct {
	engine     *rules.Engine
	acceptor   Acceptor
	drafts     DraftClearer
	presenter  presenter.Presenter
	scheduler  Scheduler
	resetDelay time.Duration
	onReset    func()
	logger     *zap.Logger

	inFlight atomic.Bool
	state    atomic.Int32
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDrafts sets the draft store cleared on success.
func WithDrafts(drafts DraftClearer) Option {
	return func(c *Coordinator) {
		c.drafts = drafts
	}
}

// WithPresenter sets where results, banners and the busy indicator go.
func WithPresenter(p presenter.Presenter) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.presenter = p
		}
	}
}

// WithReset schedules fn on s, delay after a successful submission.
func WithReset(s Scheduler, delay time.Duration, fn func()) Option {
	return func(c *Coordinator) {
		c.scheduler = s
		c.resetDelay = delay
		c.onReset = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator returns a coordinator validating with engine and
// submitting through acceptor.
func NewCoordinator(engine *rules.Engine, acceptor Acceptor, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:     engine,
		acceptor:   acceptor,
		presenter:  presenter.Nop{},
		resetDelay: DefaultResetDelay,
		logger:     zap.NewNop(),
	}
	if c.engine == nil {
		c.engine = rules.NewEngine(nil)
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// InFlight reports whether an attempt is running.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// Submit validates f and, when valid, hands it to the acceptor. A call made
// while another is in flight returns OutcomeRejected immediately.
func (c *Coordinator) Submit(ctx context.Context, f *form.Form) (out Outcome) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Outcome{Kind: OutcomeRejected}
	}

	attempt := uuid.NewString()
	ctx = WithAttemptID(ctx, attempt)
	logger := c.logger.With(zap.String("attempt", attempt))
	busy := false

	defer func() {
		c.state.Store(int32(StateIdle))
		c.inFlight.Store(false)
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("submission: attempt panicked", zap.Any("panic", r))
			c.safely(logger, func() { c.presenter.Banner(presenter.SeverityError, FailureMessage) })
			out = Outcome{Kind: OutcomeFailure, AttemptID: attempt, Err: fmt.Errorf("submission: panic: %v", r)}
		}
		if busy {
			c.safely(logger, func() { c.presenter.Busy(false) })
		}
	}()

	c.state.Store(int32(StateValidating))
	valid, results := c.engine.EvaluateAll(f.States())
	for _, result := range results {
		c.presenter.Field(result)
	}

	if !valid {
		first, _ := rules.FirstInvalid(results)
		c.presenter.Banner(presenter.SeverityError, InvalidMessage)
		c.presenter.Focus(first.FieldID)
		logger.Debug("submission: form invalid", zap.String("first_invalid", first.FieldID))
		return Outcome{Kind: OutcomeInvalid, AttemptID: attempt, FirstInvalid: first.FieldID, Results: results}
	}

	c.presenter.Focus("")
	record := Collect(f.Fields())
	c.state.Store(int32(StateSubmitting))
	c.presenter.Busy(true)
	busy = true

	receipt, err := c.acceptor.Accept(ctx, record)
	if err != nil {
		logger.Error("submission: remote acceptance failed", zap.Error(err))
		c.presenter.Banner(presenter.SeverityError, FailureMessage)
		return Outcome{Kind: OutcomeFailure, AttemptID: attempt, Results: results, Err: err}
	}

	logger.Info("submission: accepted", zap.String("receipt", receipt.ID), zap.Int("fields", len(record)))
	c.presenter.Banner(presenter.SeveritySuccess, SuccessMessage)
	if c.drafts != nil {
		c.drafts.Clear(context.WithoutCancel(ctx))
	}
	c.scheduleReset(logger)
	return Outcome{Kind: OutcomeSuccess, AttemptID: attempt, Receipt: receipt, Results: results}
}

func (c *Coordinator) scheduleReset(logger *zap.Logger) {
	if c.scheduler == nil || c.onReset == nil {
		return
	}
	if err := c.scheduler.After(ResetTask, c.resetDelay, c.onReset); err != nil {
		logger.Warn("submission: reset not scheduled", zap.Error(err))
	}
}

func (c *Coordinator) safely(logger *zap.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("submission: presenter panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
