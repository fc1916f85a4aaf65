package testsupport

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/rules"
)

// Today is the date fixtures are pinned to.
var Today = rules.Date{Year: 2026, Month: time.October, Day: 16}

// Calendar returns a UTC calendar frozen at noon on day.
func Calendar(day rules.Date) rules.Calendar {
	at := time.Date(day.Year, day.Month, day.Day, 12, 0, 0, 0, time.UTC)
	return rules.NewCalendar(time.UTC, func() time.Time { return at })
}

// EnrollmentForm builds the embedded enrollment form and its engine against
// a calendar pinned to Today.
func EnrollmentForm(t *testing.T) (*form.Form, *rules.Engine) {
	t.Helper()

	def := form.DefaultDefinition()
	f, table, err := def.Build(rules.DefaultRegistry(Calendar(Today)))
	if err != nil {
		t.Fatalf("build enrollment form: %v", err)
	}
	return f, rules.NewEngine(table)
}

// ValidValues returns input that passes every enrollment rule on Today.
func ValidValues() map[string]string {
	return map[string]string{
		"firstName":         "Ada",
		"lastName":          "Lovelace",
		"email":             "ada@example.com",
		"phone":             "+1 (555) 123-4567",
		"dateOfBirth":       "2000-12-10",
		"studentId":         "ABC123456",
		"course":            "computer-science",
		"year":              "2",
		"enrollmentDate":    "2024-09-01",
		"address":           "12 St James's Square",
		"city":              "London",
		"state":             "Greater London",
		"zipCode":           "SW1Y 4JH",
		"country":           "uk",
		"emergencyName":     "Mary Somerville",
		"emergencyRelation": "guardian",
		"emergencyPhone":    "+44 20 7946 0958",
	}
}

// FillValid writes ValidValues into f and ticks the terms box.
func FillValid(t *testing.T, f *form.Form) {
	t.Helper()

	for id, value := range ValidValues() {
		if err := f.SetValue(id, value); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}
	if err := f.SetChecked("terms", true); err != nil {
		t.Fatalf("check terms: %v", err)
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
