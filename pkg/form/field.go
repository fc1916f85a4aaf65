package form

import (
	"strings"

	"github.com/goliatone/go-enrollment/pkg/rules"
)

// Kind is the input control kind of a field.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindTel      Kind = "tel"
	KindDate     Kind = "date"
	KindSelect   Kind = "select"
	KindTextArea Kind = "textarea"
	KindCheckbox Kind = "checkbox"
)

// DefaultCheckboxValue is the value attribute submitted for a checked box
// that does not declare one.
const DefaultCheckboxValue = "on"

func (k Kind) valid() bool {
	switch k {
	case KindText, KindEmail, KindTel, KindDate, KindSelect, KindTextArea, KindCheckbox:
		return true
	}
	return false
}

// Option is a choice of a select field.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Bounds expresses date limits relative to today, in years. They are
// resolved into Min/Max when the session starts.
type Bounds struct {
	MinYearsAgo *int `yaml:"minYearsAgo,omitempty" json:"minYearsAgo,omitempty"`
	MaxYearsAgo *int `yaml:"maxYearsAgo,omitempty" json:"maxYearsAgo,omitempty"`
}

// Field is a snapshot of one form control. For checkboxes Value is the
// value attribute and Checked the state; for every other kind Checked is
// unused.
type Field struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Kind        Kind     `json:"kind"`
	Value       string   `json:"value"`
	Checked     bool     `json:"checked,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Option `json:"options,omitempty"`
	// Live fields are re-validated shortly after typing stops.
	Live   bool   `json:"live,omitempty"`
	Min    string `json:"min,omitempty"`
	Max    string `json:"max,omitempty"`
	Bounds Bounds `json:"-"`
}

// IsCheckbox reports whether the field is a checkbox.
func (f Field) IsCheckbox() bool {
	return f.Kind == KindCheckbox
}

// State converts the field into the engine's evaluation input.
func (f Field) State() rules.FieldState {
	return rules.FieldState{
		ID:       f.ID,
		Label:    f.Label,
		Value:    f.Value,
		Checkbox: f.IsCheckbox(),
		Checked:  f.Checked,
	}
}

// DisplayLabel returns the label without required markers.
func (f Field) DisplayLabel() string {
	return f.State().DisplayLabel()
}

// Required reports whether the label carries a required marker.
func (f Field) Required() bool {
	return strings.Contains(f.Label, "*")
}

func (f Field) clone() Field {
	if f.Options != nil {
		f.Options = append([]Option(nil), f.Options...)
	}
	return f
}
