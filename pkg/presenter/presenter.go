// Package presenter is the boundary between the enrollment logic and
// whatever shows it to a person. The logic reports field results, banners,
// busy state and focus; presenters decide how that looks.
package presenter

import (
	"github.com/goliatone/go-enrollment/pkg/rules"
)

// Severity classifies a banner.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Presenter receives presentation events. Implementations must be safe for
// concurrent use.
type Presenter interface {
	// Field shows the outcome of validating one field.
	Field(result rules.Result)
	// ClearField removes any state shown for a field.
	ClearField(id string)
	// ClearAll removes every field state.
	ClearAll()
	// Banner shows a form-level message, replacing the previous one.
	Banner(severity Severity, message string)
	// Busy toggles the submission indicator.
	Busy(busy bool)
	// Focus moves attention to a field. An empty id releases it.
	Focus(id string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Field(rules.Result) {}
func (Nop) ClearField(string) {}
func (Nop) ClearAll() {}
func (Nop) Banner(Severity, string) {}
func (Nop) Busy(bool) {}
func (Nop) Focus(string) {}

// Multi fans events out to several presenters in order.
func Multi(presenters ...Presenter) Presenter {
	out := make(multi, 0, len(presenters))
	for _, p := range presenters {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

type multi []Presenter

func (m multi) Field(result rules.Result) {
	for _, p := range m {
		p.Field(result)
	}
}

func (m multi) ClearField(id string) {
	for _, p := range m {
		p.ClearField(id)
	}
}

func (m multi) ClearAll() {
	for _, p := range m {
		p.ClearAll()
	}
}

func (m multi) Banner(severity Severity, message string) {
	for _, p := range m {
		p.Banner(severity, message)
	}
}

func (m multi) Busy(busy bool) {
	for _, p := range m {
		p.Busy(busy)
	}
}

func (m multi) Focus(id string) {
	for _, p := range m {
		p.Focus(id)
	}
}

var _ Presenter = (*Recorder)(nil)
var _ Presenter = (*Terminal)(nil)
var _ Presenter = Nop{}
