package rules

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fixedCalendar(t *testing.T, y int, m time.Month, d int) Calendar {
	t.Helper()
	now := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return NewCalendar(time.UTC, func() time.Time { return now })
}

func TestEvaluate_RequiredRejectsBlankValues(t *testing.T) {
	engine := NewEngine(MustTable(Rule{FieldID: "firstName", Required: true, MinLength: 2}))

	for _, value := range []string{"", " ", "\t\n  "} {
		got := engine.Evaluate(FieldState{ID: "firstName", Label: "First Name *", Value: value})
		want := Result{FieldID: "firstName", Status: StatusInvalid, Message: "First Name is required"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("value %q mismatch (-want +got):\n%s", value, diff)
		}
	}
}

func TestEvaluate_LabelFallsBackToFieldID(t *testing.T) {
	engine := NewEngine(MustTable(Rule{FieldID: "course", Required: true}))
	got := engine.Evaluate(FieldState{ID: "course"})
	if got.Message != "course is required" {
		t.Fatalf("unexpected message: %q", got.Message)
	}
}

func TestEvaluate_MinLengthBoundary(t *testing.T) {
	engine := NewEngine(MustTable(Rule{FieldID: "address", Required: true, MinLength: 5}))

	short := engine.Evaluate(FieldState{ID: "address", Label: "Address", Value: "1 Ma"})
	if short.Status != StatusInvalid {
		t.Fatalf("expected length 4 to fail, got %+v", short)
	}
	if short.Message != "Address must be at least 5 characters long" {
		t.Fatalf("unexpected message: %q", short.Message)
	}

	exact := engine.Evaluate(FieldState{ID: "address", Label: "Address", Value: "1 Mai"})
	if exact.Status != StatusValid {
		t.Fatalf("expected length 5 to pass, got %+v", exact)
	}

	padded := engine.Evaluate(FieldState{ID: "address", Label: "Address", Value: "  1 Ma  "})
	if padded.Status != StatusInvalid {
		t.Fatalf("expected trimmed length to be used, got %+v", padded)
	}
}

func TestEvaluate_MinLengthCountsRunes(t *testing.T) {
	engine := NewEngine(MustTable(Rule{FieldID: "city", Required: true, MinLength: 2}))
	got := engine.Evaluate(FieldState{ID: "city", Value: "Åå"})
	if got.Status != StatusValid {
		t.Fatalf("expected two runes to satisfy minLength 2, got %+v", got)
	}
}

func TestEvaluate_EmptyOptionalIsSkipped(t *testing.T) {
	engine := NewEngine(MustTable(Rule{
		FieldID:   "phone",
		MinLength: 10,
		Pattern:   regexp.MustCompile(`^[\+]?[\d\s\-\(\)]+$`),
		Message:   "Please enter a valid phone number",
	}))

	got := engine.Evaluate(FieldState{ID: "phone", Value: "   "})
	if got.Status != StatusSkipped {
		t.Fatalf("expected skipped, got %+v", got)
	}

	bad := engine.Evaluate(FieldState{ID: "phone", Value: "call me maybe"})
	if bad.Status != StatusInvalid || bad.Message != "Please enter a valid phone number" {
		t.Fatalf("expected pattern failure, got %+v", bad)
	}
}

func TestEvaluate_ChecksRunInOrder(t *testing.T) {
	customCalls := 0
	engine := NewEngine(MustTable(Rule{
		FieldID:   "city",
		Required:  true,
		MinLength: 2,
		Pattern:   regexp.MustCompile(`^[a-zA-Z\s'-]+$`),
		Custom: func(string, FieldState) bool {
			customCalls++
			return false
		},
		Message: "City name is invalid",
	}))

	short := engine.Evaluate(FieldState{ID: "city", Label: "City", Value: "1"})
	if !strings.Contains(short.Message, "at least 2 characters") {
		t.Fatalf("expected length failure first, got %+v", short)
	}
	pattern := engine.Evaluate(FieldState{ID: "city", Label: "City", Value: "12"})
	if pattern.Message != "City name is invalid" {
		t.Fatalf("expected pattern failure, got %+v", pattern)
	}
	if customCalls != 0 {
		t.Fatalf("custom predicate must not run before earlier checks pass, ran %d times", customCalls)
	}
	custom := engine.Evaluate(FieldState{ID: "city", Label: "City", Value: "Lyon"})
	if custom.Status != StatusInvalid || customCalls != 1 {
		t.Fatalf("expected custom failure after one call, got %+v (calls %d)", custom, customCalls)
	}
}

func TestEvaluate_UnknownFieldIsSkipped(t *testing.T) {
	engine := NewEngine(nil)
	got := engine.Evaluate(FieldState{ID: "nickname", Value: ""})
	if got.Status != StatusSkipped {
		t.Fatalf("expected skipped for field without rule, got %+v", got)
	}
}

func TestEvaluate_CheckboxRequiresCheckedState(t *testing.T) {
	engine := NewEngine(MustTable(Rule{
		FieldID:  "terms",
		Required: true,
		Custom:   Checked(),
		Message:  "You must agree to the Terms and Conditions",
	}))

	unchecked := engine.Evaluate(FieldState{ID: "terms", Label: "I agree to the Terms", Value: "on", Checkbox: true})
	if unchecked.Status != StatusInvalid || unchecked.Message != "I agree to the Terms is required" {
		t.Fatalf("unexpected unchecked result: %+v", unchecked)
	}

	checked := engine.Evaluate(FieldState{ID: "terms", Value: "on", Checkbox: true, Checked: true})
	if checked.Status != StatusValid {
		t.Fatalf("expected checked box to pass, got %+v", checked)
	}
}

func TestEvaluateAll_DoesNotShortCircuit(t *testing.T) {
	engine := NewEngine(MustTable(
		Rule{FieldID: "firstName", Required: true},
		Rule{FieldID: "lastName", Required: true},
		Rule{FieldID: "email", Required: true},
	))

	ok, results := engine.EvaluateAll([]FieldState{
		{ID: "firstName", Label: "First Name"},
		{ID: "lastName", Label: "Last Name", Value: "Lovelace"},
		{ID: "email", Label: "Email"},
		{ID: "notes", Value: "free text"},
	})
	if ok {
		t.Fatalf("expected form to be invalid")
	}

	want := []Result{
		{FieldID: "firstName", Status: StatusInvalid, Message: "First Name is required"},
		{FieldID: "lastName", Status: StatusValid},
		{FieldID: "email", Status: StatusInvalid, Message: "Email is required"},
		{FieldID: "notes", Status: StatusSkipped},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}

	first, found := FirstInvalid(results)
	if !found || first.FieldID != "firstName" {
		t.Fatalf("expected firstName as first invalid field, got %+v", first)
	}
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	if _, err := NewTable(Rule{FieldID: "email"}, Rule{FieldID: " email "}); err == nil {
		t.Fatalf("expected duplicate rule error")
	}
	if _, err := NewTable(Rule{}); err == nil {
		t.Fatalf("expected missing id error")
	}
}
