package form

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-enrollment/pkg/rules"
)

//go:embed data/enrollment.yaml
var defaultDefinition []byte

// Definition is the serialisable description of a form and its rules.
type Definition struct {
	Name   string      `yaml:"name"`
	Fields []FieldSpec `yaml:"fields"`
}

// FieldSpec describes one field of a Definition.
type FieldSpec struct {
	ID          string      `yaml:"id"`
	Label       string      `yaml:"label"`
	Kind        Kind        `yaml:"kind"`
	Placeholder string      `yaml:"placeholder,omitempty"`
	Default     string      `yaml:"default,omitempty"`
	Live        bool        `yaml:"live,omitempty"`
	Options     []Option    `yaml:"options,omitempty"`
	Bounds      Bounds      `yaml:"bounds,omitempty"`
	Rule        *rules.Spec `yaml:"rule,omitempty"`
}

// DefaultDefinition returns the embedded student enrollment definition.
func DefaultDefinition() Definition {
	def, err := ParseDefinition(defaultDefinition)
	if err != nil {
		panic(fmt.Sprintf("form: embedded definition: %v", err))
	}
	return def
}

// LoadDefinition decodes a YAML definition from r.
func LoadDefinition(r io.Reader) (Definition, error) {
	if r == nil {
		return Definition{}, fmt.Errorf("form: missing reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("form: read definition: %w", err)
	}
	return ParseDefinition(data)
}

// ParseDefinition decodes a YAML definition.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("form: decode definition: %w", err)
	}
	if len(def.Fields) == 0 {
		return Definition{}, fmt.Errorf("form: definition %q has no fields", def.Name)
	}
	return def, nil
}

// Build creates the form and its compiled rule table. Predicates named by
// rules are resolved through registry.
func (d Definition) Build(registry *rules.Registry) (*Form, *rules.Table, error) {
	fields := make([]Field, 0, len(d.Fields))
	compiled := make([]rules.Rule, 0, len(d.Fields))

	for _, spec := range d.Fields {
		id := strings.TrimSpace(spec.ID)
		if spec.Kind == KindSelect && len(spec.Options) == 0 {
			return nil, nil, fmt.Errorf("form: select field %q has no options", id)
		}
		fields = append(fields, Field{
			ID:          id,
			Label:       spec.Label,
			Kind:        spec.Kind,
			Value:       spec.Default,
			Placeholder: spec.Placeholder,
			Live:        spec.Live,
			Options:     append([]Option(nil), spec.Options...),
			Bounds:      spec.Bounds,
		})
		if spec.Rule == nil {
			continue
		}
		rule, err := rules.Compile(id, *spec.Rule, registry)
		if err != nil {
			return nil, nil, err
		}
		compiled = append(compiled, rule)
	}

	f, err := New(d.Name, fields...)
	if err != nil {
		return nil, nil, err
	}
	table, err := rules.NewTable(compiled...)
	if err != nil {
		return nil, nil, err
	}
	return f, table, nil
}

// Rules returns the uncompiled rule specs keyed by field id, in document
// order, for callers that describe the form to other systems.
func (d Definition) Rules() ([]string, map[string]rules.Spec) {
	order := make([]string, 0, len(d.Fields))
	out := make(map[string]rules.Spec, len(d.Fields))
	for _, spec := range d.Fields {
		if spec.Rule == nil {
			continue
		}
		order = append(order, spec.ID)
		out[spec.ID] = *spec.Rule
	}
	return order, out
}
