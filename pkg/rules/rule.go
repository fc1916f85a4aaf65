package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Predicate is a custom check run after the built-in constraints. It receives
// the trimmed value and the full field state (for example the checked flag of
// a checkbox).
type Predicate func(value string, state FieldState) bool

// Rule describes how a single field is validated. MinLength of zero means no
// length constraint.
type Rule struct {
	FieldID   string
	Required  bool
	MinLength int
	Pattern   *regexp.Regexp
	Custom    Predicate
	Message   string
}

// FieldState is the live state of a field at evaluation time.
type FieldState struct {
	ID       string
	Label    string
	Value    string
	Checkbox bool
	Checked  bool
}

// DisplayLabel returns the label without required markers, falling back to
// the field id.
func (s FieldState) DisplayLabel() string {
	label := strings.TrimSpace(strings.ReplaceAll(s.Label, "*", ""))
	if label == "" {
		return s.ID
	}
	return label
}

// Table holds at most one rule per field id.
type Table struct {
	rules map[string]Rule
}

// NewTable builds a table, rejecting empty or duplicate field ids.
func NewTable(rules ...Rule) (*Table, error) {
	t := &Table{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		if err := t.add(rule); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustTable is NewTable that panics on error, for static rule sets.
func MustTable(rules ...Rule) *Table {
	t, err := NewTable(rules...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) add(rule Rule) error {
	id := strings.TrimSpace(rule.FieldID)
	if id == "" {
		return fmt.Errorf("rules: rule without field id")
	}
	if _, exists := t.rules[id]; exists {
		return fmt.Errorf("rules: duplicate rule for field %q", id)
	}
	rule.FieldID = id
	t.rules[id] = rule
	return nil
}

// Rule returns the rule registered for id.
func (t *Table) Rule(id string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	rule, ok := t.rules[id]
	return rule, ok
}

// Len reports the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}
