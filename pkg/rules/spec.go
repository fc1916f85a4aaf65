package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Spec is the serialisable form of a Rule, as found in form definitions.
type Spec struct {
	Required   bool              `yaml:"required" json:"required"`
	MinLength  int               `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	Pattern    string            `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	IgnoreCase bool              `yaml:"ignoreCase,omitempty" json:"ignoreCase,omitempty"`
	Custom     string            `yaml:"custom,omitempty" json:"custom,omitempty"`
	Params     map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	Message    string            `yaml:"message" json:"message"`
}

// Compile turns a spec into a Rule. The pattern is compiled here, once, and
// the custom predicate is resolved through registry.
func Compile(fieldID string, spec Spec, registry *Registry) (Rule, error) {
	rule := Rule{
		FieldID:   fieldID,
		Required:  spec.Required,
		MinLength: spec.MinLength,
		Message:   strings.TrimSpace(spec.Message),
	}
	if spec.MinLength < 0 {
		return Rule{}, fmt.Errorf("rules: field %q: negative minLength", fieldID)
	}
	if expr := strings.TrimSpace(spec.Pattern); expr != "" {
		if spec.IgnoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("rules: field %q: compile pattern: %w", fieldID, err)
		}
		rule.Pattern = re
	}
	if name := strings.TrimSpace(spec.Custom); name != "" {
		if registry == nil {
			return Rule{}, fmt.Errorf("rules: field %q: predicate %q needs a registry", fieldID, name)
		}
		pred, err := registry.Build(name, spec.Params)
		if err != nil {
			return Rule{}, fmt.Errorf("rules: field %q: %w", fieldID, err)
		}
		rule.Custom = pred
	}
	return rule, nil
}

// PatternSource returns the expression a compiled pattern was built from.
func (r Rule) PatternSource() string {
	if r.Pattern == nil {
		return ""
	}
	return r.Pattern.String()
}
