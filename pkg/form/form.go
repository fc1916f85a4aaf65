package form

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-enrollment/pkg/rules"
)

// ErrUnknownField is returned when an operation names a field the form does
// not have.
var ErrUnknownField = errors.New("form: unknown field")

// Form is an ordered set of fields.
type Form struct {
	mu       sync.RWMutex
	name     string
	order    []string
	fields   map[string]*Field
	defaults map[string]Field
}

// New builds a form from fields in document order. The given values become
// the defaults restored by Reset.
func New(name string, fields ...Field) (*Form, error) {
	f := &Form{
		name:     strings.TrimSpace(name),
		order:    make([]string, 0, len(fields)),
		fields:   make(map[string]*Field, len(fields)),
		defaults: make(map[string]Field, len(fields)),
	}
	for _, field := range fields {
		id := strings.TrimSpace(field.ID)
		if id == "" {
			return nil, errors.New("form: field without id")
		}
		if _, exists := f.fields[id]; exists {
			return nil, fmt.Errorf("form: duplicate field %q", id)
		}
		if field.Kind == "" {
			field.Kind = KindText
		}
		if !field.Kind.valid() {
			return nil, fmt.Errorf("form: field %q has unknown kind %q", id, field.Kind)
		}
		if field.IsCheckbox() && field.Value == "" {
			field.Value = DefaultCheckboxValue
		}
		field.ID = id
		stored := field.clone()
		f.fields[id] = &stored
		f.defaults[id] = field.clone()
		f.order = append(f.order, id)
	}
	return f, nil
}

// Name returns the form name.
func (f *Form) Name() string {
	return f.name
}

// Fields returns a snapshot of every field in document order.
func (f *Form) Fields() []Field {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Field, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.fields[id].clone())
	}
	return out
}

// Field returns a snapshot of one field.
func (f *Form) Field(id string) (Field, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	field, ok := f.fields[id]
	if !ok {
		return Field{}, false
	}
	return field.clone(), true
}

// Has reports whether the form has a field with id.
func (f *Form) Has(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.fields[id]
	return ok
}

// States returns the evaluation input for every field in document order.
func (f *Form) States() []rules.FieldState {
	fields := f.Fields()
	out := make([]rules.FieldState, 0, len(fields))
	for _, field := range fields {
		out = append(out, field.State())
	}
	return out
}

// SetValue writes the string value of a field. For checkboxes this changes
// the value attribute, not the checked state.
func (f *Form) SetValue(id, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.fields[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	field.Value = value
	return nil
}

// SetChecked writes the checked state of a checkbox.
func (f *Form) SetChecked(id string, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.fields[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	if !field.IsCheckbox() {
		return fmt.Errorf("form: field %q is not a checkbox", id)
	}
	field.Checked = checked
	return nil
}

// Input applies user input: the checked state for checkboxes, the value for
// every other kind.
func (f *Form) Input(id, value string, checked bool) error {
	field, ok := f.Field(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	if field.IsCheckbox() {
		return f.SetChecked(id, checked)
	}
	return f.SetValue(id, value)
}

// ApplyBounds resolves relative date bounds against today.
func (f *Form) ApplyBounds(today rules.Date) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		field := f.fields[id]
		if field.Bounds.MinYearsAgo != nil {
			field.Min = today.AddYears(-*field.Bounds.MinYearsAgo).String()
		}
		if field.Bounds.MaxYearsAgo != nil {
			field.Max = today.AddYears(-*field.Bounds.MaxYearsAgo).String()
		}
	}
}

// Reset restores every value and checked state to its default. Resolved date
// bounds are kept.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		field := f.fields[id]
		def := f.defaults[id]
		field.Value = def.Value
		field.Checked = def.Checked
	}
}
