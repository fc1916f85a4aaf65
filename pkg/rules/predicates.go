package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PredicateFactory builds a predicate from string parameters.
type PredicateFactory func(params map[string]string) (Predicate, error)

// Registry maps predicate names to factories so form definitions can refer
// to custom checks by name.
type Registry struct {
	factories map[string]PredicateFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]PredicateFactory)}
}

// DefaultRegistry registers age_between, within_past_years and checked
// against the supplied calendar.
func DefaultRegistry(cal Calendar) *Registry {
	r := NewRegistry()
	r.MustRegister("age_between", func(params map[string]string) (Predicate, error) {
		minAge, err := intParam(params, "min", 16)
		if err != nil {
			return nil, err
		}
		maxAge, err := intParam(params, "max", 100)
		if err != nil {
			return nil, err
		}
		return AgeBetween(cal, minAge, maxAge), nil
	})
	r.MustRegister("within_past_years", func(params map[string]string) (Predicate, error) {
		years, err := intParam(params, "years", 10)
		if err != nil {
			return nil, err
		}
		return WithinPastYears(cal, years), nil
	})
	r.MustRegister("checked", func(map[string]string) (Predicate, error) {
		return Checked(), nil
	})
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory PredicateFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return fmt.Errorf("rules: predicate name and factory required")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("rules: predicate %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, factory PredicateFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Build instantiates the named predicate.
func (r *Registry) Build(name string, params map[string]string) (Predicate, error) {
	factory, ok := r.factories[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("rules: unknown predicate %q", name)
	}
	pred, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("rules: predicate %q: %w", name, err)
	}
	return pred, nil
}

// Names lists registered predicates in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AgeBetween accepts a birth date whose age today, in whole years, lies in
// [minAge, maxAge].
func AgeBetween(cal Calendar, minAge, maxAge int) Predicate {
	return func(value string, _ FieldState) bool {
		birth, ok := ParseDate(value)
		if !ok {
			return false
		}
		age := YearsBetween(birth, cal.Today())
		return age >= minAge && age <= maxAge
	}
}

// WithinPastYears accepts dates in [today - years, today], both inclusive.
func WithinPastYears(cal Calendar, years int) Predicate {
	return func(value string, _ FieldState) bool {
		date, ok := ParseDate(value)
		if !ok {
			return false
		}
		today := cal.Today()
		earliest := today.AddYears(-years)
		return !date.Before(earliest) && !today.Before(date)
	}
}

// Checked ignores the value and accepts only a checked checkbox.
func Checked() Predicate {
	return func(_ string, state FieldState) bool {
		return state.Checked
	}
}

func intParam(params map[string]string, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(params[key])
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}
