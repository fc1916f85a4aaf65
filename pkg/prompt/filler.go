// Package prompt fills an enrollment session from the terminal, one field at
// a time, re-asking until each field passes its rule, and then offers to
// submit.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/rules"
	"github.com/goliatone/go-enrollment/pkg/session"
	"github.com/goliatone/go-enrollment/pkg/submission"
)

// DefaultMaxAttempts bounds how often a field is re-asked.
const DefaultMaxAttempts = 5

// Filler drives a session through a Driver.
type Filler struct {
	session     *session.Session
	driver      Driver
	logger      *zap.Logger
	maxAttempts int
	onlyMissing bool
}

// Option configures a Filler.
type Option func(*Filler)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMaxAttempts sets how many times a field is asked before giving up.
func WithMaxAttempts(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithOnlyMissing skips fields that already pass validation, which is what
// a user continuing from a draft wants.
func WithOnlyMissing() Option {
	return func(f *Filler) {
		f.onlyMissing = true
	}
}

// NewFiller returns a filler for a started session.
func NewFiller(s *session.Session, opts ...Option) (*Filler, error) {
	if s == nil {
		return nil, errors.New("prompt: session is required")
	}
	f := &Filler{
		session:     s,
		logger:      zap.NewNop(),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	return f, nil
}

// Fill asks for every field and then offers to submit. Declining saves the
// draft and returns ErrDeclined.
func (f *Filler) Fill(ctx context.Context) (submission.Outcome, error) {
	engine := f.session.Engine()
	for _, field := range f.session.Form().Fields() {
		if f.onlyMissing && field.Value != "" && engine.Evaluate(field.State()).Status == rules.StatusValid {
			continue
		}
		if err := f.fillField(ctx, field.ID); err != nil {
			if errors.Is(err, ErrAborted) {
				_ = f.session.Unload(context.WithoutCancel(ctx))
			}
			return submission.Outcome{}, err
		}
	}

	submit, err := f.driver.Confirm(ctx, ConfirmConfig{Message: "Submit application?", Default: true})
	if err != nil {
		if errors.Is(err, ErrAborted) {
			_ = f.session.Unload(context.WithoutCancel(ctx))
		}
		return submission.Outcome{}, err
	}
	if !submit {
		if err := f.session.SaveDraft(ctx); err != nil {
			return submission.Outcome{}, err
		}
		return submission.Outcome{}, ErrDeclined
	}
	return f.session.Submit(ctx)
}

func (f *Filler) fillField(ctx context.Context, id string) error {
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		field, ok := f.session.Form().Field(id)
		if !ok {
			return fmt.Errorf("%w: %q", form.ErrUnknownField, id)
		}
		if err := f.session.Focus(id); err != nil {
			return err
		}

		value, checked, err := f.ask(ctx, field)
		if err != nil {
			return err
		}
		if err := f.session.Change(ctx, id, value, checked); err != nil {
			return err
		}
		result, err := f.session.Blur(id)
		if err != nil {
			return err
		}
		if result.OK() {
			return nil
		}
		f.logger.Debug("prompt: field rejected", zap.String("field", id), zap.Int("attempt", attempt))
	}
	return fmt.Errorf("prompt: field %q still invalid after %d attempts", id, f.maxAttempts)
}

func (f *Filler) ask(ctx context.Context, field form.Field) (string, bool, error) {
	message := field.Label
	switch field.Kind {
	case form.KindCheckbox:
		checked, err := f.driver.Confirm(ctx, ConfirmConfig{Message: field.DisplayLabel(), Default: field.Checked})
		return field.Value, checked, err
	case form.KindSelect:
		labels := make([]string, 0, len(field.Options))
		current := 0
		for i, option := range field.Options {
			labels = append(labels, option.Label)
			if option.Value == field.Value {
				current = i
			}
		}
		idx, err := f.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: current})
		if err != nil {
			return "", false, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return "", false, nil
		}
		return field.Options[idx].Value, false, nil
	case form.KindTextArea:
		value, err := f.driver.TextArea(ctx, TextAreaConfig{
			Message:   message,
			Default:   field.Value,
			Validator: f.validator(field),
		})
		return value, false, err
	default:
		value, err := f.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   field.Value,
			Help:      help(field),
			Validator: f.validator(field),
		})
		return value, false, err
	}
}

// validator checks a candidate value with the field's rule before it is
// accepted by the driver.
func (f *Filler) validator(field form.Field) func(string) error {
	engine := f.session.Engine()
	return func(value string) error {
		state := field.State()
		state.Value = value
		if result := engine.Evaluate(state); !result.OK() {
			return errors.New(result.Message)
		}
		return nil
	}
}

func help(field form.Field) string {
	switch {
	case field.Kind == form.KindDate && field.Min != "" && field.Max != "":
		return fmt.Sprintf("YYYY-MM-DD between %s and %s", field.Min, field.Max)
	case field.Kind == form.KindDate && field.Max != "":
		return fmt.Sprintf("YYYY-MM-DD, no later than %s", field.Max)
	case field.Kind == form.KindDate:
		return "YYYY-MM-DD"
	case field.Placeholder != "":
		return "e.g. " + field.Placeholder
	}
	return ""
}
