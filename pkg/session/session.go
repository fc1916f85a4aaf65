// Package session hosts one enrollment form: it owns the form state, the
// validation engine, the draft store, the submission coordinator and every
// timer they need, and exposes the user-facing events as methods.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-enrollment/pkg/draft"
	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/rules"
	"github.com/goliatone/go-enrollment/pkg/schedule"
	"github.com/goliatone/go-enrollment/pkg/submission"
)

// Banner texts shown by the session.
const (
	DraftSavedMessage  = "Draft saved successfully!"
	DraftLoadedMessage = "Previous draft loaded. You can continue where you left off."
	ResetMessage       = "Form has been reset."
)

// Default timings.
const (
	DefaultAutosave = 30 * time.Second
	DefaultDebounce = 500 * time.Millisecond
)

const (
	autosaveTask = "session.autosave"
	validateTask = "session.validate"
)

var (
	// ErrClosed is returned by every event method after Close.
	ErrClosed = errors.New("session: closed")
	// ErrNotStarted is returned by event methods called before Start.
	ErrNotStarted = errors.New("session: not started")
)

// Session is the owned context of one form instance.
type Session struct {
	form        *form.Form
	engine      *rules.Engine
	drafts      *draft.Store
	coordinator *submission.Coordinator
	scheduler   *schedule.Scheduler
	presenter   presenter.Presenter
	calendar    rules.Calendar
	logger      *zap.Logger

	autosave   time.Duration
	debounce   time.Duration
	resetDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// Option configures a Session.
type Option func(*Session)

// WithPresenter sets where field states and banners are shown.
func WithPresenter(p presenter.Presenter) Option {
	return func(s *Session) {
		if p != nil {
			s.presenter = p
		}
	}
}

// WithCalendar sets the calendar used to resolve date bounds.
func WithCalendar(cal rules.Calendar) Option {
	return func(s *Session) {
		s.calendar = cal
	}
}

// WithAutosave sets the autosave period. Zero disables autosave.
func WithAutosave(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.autosave = d
		}
	}
}

// WithDebounce sets the delay before live fields are validated.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithResetDelay sets how long a successful submission stays on screen.
func WithResetDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.resetDelay = d
		}
	}
}

// WithLogger sets the logger shared with the session's components.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New assembles a session. Nothing runs until Start.
func New(f *form.Form, engine *rules.Engine, drafts *draft.Store, acceptor submission.Acceptor, opts ...Option) (*Session, error) {
	if f == nil {
		return nil, errors.New("session: form is required")
	}
	if engine == nil {
		return nil, errors.New("session: engine is required")
	}
	if drafts == nil {
		return nil, errors.New("session: draft store is required")
	}
	if acceptor == nil {
		return nil, errors.New("session: acceptor is required")
	}

	s := &Session{
		form:       f,
		engine:     engine,
		drafts:     drafts,
		presenter:  presenter.Nop{},
		calendar:   rules.NewCalendar(time.UTC, nil),
		logger:     zap.NewNop(),
		autosave:   DefaultAutosave,
		debounce:   DefaultDebounce,
		resetDelay: submission.DefaultResetDelay,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.scheduler = schedule.New(schedule.WithLogger(s.logger))
	s.coordinator = submission.NewCoordinator(engine, acceptor,
		submission.WithDrafts(drafts),
		submission.WithPresenter(s.presenter),
		submission.WithReset(s.scheduler, s.resetDelay, s.resetAfterSuccess),
		submission.WithLogger(s.logger),
	)
	return s, nil
}

// Form returns the hosted form.
func (s *Session) Form() *form.Form {
	return s.form
}

// Engine returns the validation engine.
func (s *Session) Engine() *rules.Engine {
	return s.engine
}

// Coordinator returns the submission coordinator.
func (s *Session) Coordinator() *submission.Coordinator {
	return s.coordinator
}

// Start resolves date bounds, restores a saved draft and starts autosave.
// Calling it twice is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}
	s.started = true

	s.form.ApplyBounds(s.calendar.Today())

	if rec, found := s.drafts.Load(ctx); found {
		applied := draft.Restore(s.form, rec)
		s.logger.Info("session: draft restored", zap.Int("fields", len(applied)))
		s.presenter.Banner(presenter.SeverityInfo, DraftLoadedMessage)
	}

	if s.autosave > 0 {
		if err := s.scheduler.Every(autosaveTask, s.autosave, s.autosaveTick); err != nil {
			return fmt.Errorf("session: start autosave: %w", err)
		}
	}
	return nil
}

// Input records typing in a field. Live fields are validated once typing
// pauses for the debounce delay; a newer input anywhere replaces the
// pending validation.
func (s *Session) Input(id, value string, checked bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.form.Input(id, value, checked); err != nil {
		return err
	}
	field, _ := s.form.Field(id)
	if !field.Live {
		return nil
	}
	err := s.scheduler.After(validateTask, s.debounce, func() {
		if _, err := s.Validate(id); err != nil && !errors.Is(err, ErrClosed) {
			s.logger.Warn("session: debounced validation failed", zap.String("field", id), zap.Error(err))
		}
	})
	if errors.Is(err, schedule.ErrStopped) {
		return ErrClosed
	}
	return err
}

// Change commits a field value and saves the draft.
func (s *Session) Change(ctx context.Context, id, value string, checked bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.form.Input(id, value, checked); err != nil {
		return err
	}
	s.drafts.Save(ctx, s.form.Fields())
	return nil
}

// Commit applies a whole posted form and saves the draft once. Checkboxes
// are checked when their id is present in values; other fields missing from
// values keep their current value. Unknown keys are ignored.
func (s *Session) Commit(ctx context.Context, values map[string]string) error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, field := range s.form.Fields() {
		value, present := values[field.ID]
		if field.IsCheckbox() {
			if err := s.form.SetChecked(field.ID, present); err != nil {
				return err
			}
			continue
		}
		if !present {
			continue
		}
		if err := s.form.SetValue(field.ID, value); err != nil {
			return err
		}
	}
	s.drafts.Save(ctx, s.form.Fields())
	return nil
}

// Focus clears the field's shown state.
func (s *Session) Focus(id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !s.form.Has(id) {
		return fmt.Errorf("%w: %q", form.ErrUnknownField, id)
	}
	s.presenter.ClearField(id)
	return nil
}

// Blur validates the field the user just left.
func (s *Session) Blur(id string) (rules.Result, error) {
	return s.Validate(id)
}

// Validate evaluates one field and presents the result.
func (s *Session) Validate(id string) (rules.Result, error) {
	if err := s.ready(); err != nil {
		return rules.Result{}, err
	}
	field, ok := s.form.Field(id)
	if !ok {
		return rules.Result{}, fmt.Errorf("%w: %q", form.ErrUnknownField, id)
	}
	result := s.engine.Evaluate(field.State())
	if result.Status == rules.StatusSkipped {
		s.presenter.ClearField(id)
	} else {
		s.presenter.Field(result)
	}
	return result, nil
}

// SaveDraft saves the draft on request and confirms it with a banner.
func (s *Session) SaveDraft(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.drafts.Save(ctx, s.form.Fields())
	s.presenter.Banner(presenter.SeverityInfo, DraftSavedMessage)
	return nil
}

// Unload saves the draft silently, as when the page is left.
func (s *Session) Unload(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.drafts.Save(ctx, s.form.Fields())
	return nil
}

// Reset clears values, shown states and the draft. Without confirmation it
// does nothing and reports false.
func (s *Session) Reset(ctx context.Context, confirmed bool) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if !confirmed {
		return false, nil
	}
	s.scheduler.Cancel(validateTask)
	s.form.Reset()
	s.presenter.ClearAll()
	s.drafts.Clear(ctx)
	s.presenter.Banner(presenter.SeverityInfo, ResetMessage)
	return true, nil
}

// Submit runs one submission attempt.
func (s *Session) Submit(ctx context.Context) (submission.Outcome, error) {
	if err := s.ready(); err != nil {
		return submission.Outcome{}, err
	}
	s.scheduler.Cancel(validateTask)
	return s.coordinator.Submit(ctx, s.form), nil
}

// Close stops autosave and pending timers and waits for running callbacks.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.scheduler.Stop()
	return nil
}

func (s *Session) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Session) autosaveTick() {
	s.drafts.Save(s.ctx, s.form.Fields())
}

// resetAfterSuccess clears the form once a successful submission has been
// on screen for the reset delay. The draft is already gone.
func (s *Session) resetAfterSuccess() {
	if s.ready() != nil {
		return
	}
	s.form.Reset()
	s.presenter.ClearAll()
}
