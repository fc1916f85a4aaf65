package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Status is the outcome of evaluating one field.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	// StatusSkipped marks an empty optional field, or a field with no rule.
	StatusSkipped Status = "skipped"
)

// Result is the evaluation outcome for a single field.
type Result struct {
	FieldID string `json:"field"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the result does not block submission.
func (r Result) OK() bool {
	return r.Status != StatusInvalid
}

// Engine evaluates field states against a rule table.
type Engine struct {
	table *Table
}

// NewEngine wraps a rule table. A nil table validates nothing.
func NewEngine(table *Table) *Engine {
	if table == nil {
		table = &Table{rules: map[string]Rule{}}
	}
	return &Engine{table: table}
}

// Table exposes the engine's rule table.
func (e *Engine) Table() *Table {
	return e.table
}

// Evaluate checks one field. Checks run in order (required, empty optional,
// minimum length, pattern, custom) and stop at the first failure.
func (e *Engine) Evaluate(state FieldState) Result {
	rule, ok := e.table.Rule(state.ID)
	if !ok {
		return Result{FieldID: state.ID, Status: StatusSkipped}
	}

	value := strings.TrimSpace(state.Value)

	if rule.Required && (value == "" || (state.Checkbox && !state.Checked)) {
		return invalid(state.ID, fmt.Sprintf("%s is required", state.DisplayLabel()))
	}
	if value == "" && !rule.Required {
		return Result{FieldID: state.ID, Status: StatusSkipped}
	}
	if rule.MinLength > 0 && utf8.RuneCountInString(value) < rule.MinLength {
		return invalid(state.ID, fmt.Sprintf("%s must be at least %d characters long", state.DisplayLabel(), rule.MinLength))
	}
	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		return invalid(state.ID, rule.Message)
	}
	if rule.Custom != nil && !rule.Custom(value, state) {
		return invalid(state.ID, rule.Message)
	}
	return Result{FieldID: state.ID, Status: StatusValid}
}

// EvaluateAll evaluates every field in order, without stopping at the first
// failure, and reports whether all of them passed.
func (e *Engine) EvaluateAll(states []FieldState) (bool, []Result) {
	valid := true
	results := make([]Result, 0, len(states))
	for _, state := range states {
		result := e.Evaluate(state)
		if !result.OK() {
			valid = false
		}
		results = append(results, result)
	}
	return valid, results
}

// FirstInvalid returns the first failing result in document order.
func FirstInvalid(results []Result) (Result, bool) {
	for _, result := range results {
		if !result.OK() {
			return result, true
		}
	}
	return Result{}, false
}

func invalid(id, message string) Result {
	return Result{FieldID: id, Status: StatusInvalid, Message: message}
}
