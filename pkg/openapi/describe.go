package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/rules"
)

// Schema names under components.
const (
	SchemaEnrollment = "Enrollment"
	SchemaFieldEvent = "FieldEvent"
	SchemaReceipt    = "Receipt"
	SchemaOutcome    = "Outcome"
	SchemaSnapshot   = "FormSnapshot"
	SchemaError      = "Error"
)

// Options configures Describe.
type Options struct {
	Title    string
	Version  string
	BasePath string
}

// Option mutates Options.
type Option func(*Options)

// WithTitle sets info.title.
func WithTitle(title string) Option {
	return func(o *Options) {
		if strings.TrimSpace(title) != "" {
			o.Title = title
		}
	}
}

// WithVersion sets info.version.
func WithVersion(version string) Option {
	return func(o *Options) {
		if strings.TrimSpace(version) != "" {
			o.Version = version
		}
	}
}

// WithBasePath sets the server URL the paths are relative to.
func WithBasePath(base string) Option {
	return func(o *Options) {
		o.BasePath = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// Describe builds and validates the API description for f.
func Describe(ctx context.Context, f *form.Form, table *rules.Table, opts ...Option) (*openapi3.T, error) {
	if f == nil {
		return nil, errors.New("openapi: form is required")
	}
	options := Options{Title: "Student Enrollment API", Version: "1.0.0"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	raw, err := json.Marshal(document(f, table, options))
	if err != nil {
		return nil, fmt.Errorf("openapi: encode document: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

// EnrollmentSchema returns the submission payload schema from doc.
func EnrollmentSchema(doc *openapi3.T) (*openapi3.Schema, error) {
	return componentSchema(doc, SchemaEnrollment)
}

// ValidateFieldEvent checks a decoded field event body against the
// FieldEvent schema of doc.
func ValidateFieldEvent(doc *openapi3.T, body map[string]any) error {
	schema, err := componentSchema(doc, SchemaFieldEvent)
	if err != nil {
		return err
	}
	if err := schema.VisitJSON(body); err != nil {
		return fmt.Errorf("openapi: field event: %w", err)
	}
	return nil
}

func componentSchema(doc *openapi3.T, name string) (*openapi3.Schema, error) {
	if doc == nil || doc.Components == nil {
		return nil, errors.New("openapi: document has no components")
	}
	ref, ok := doc.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("openapi: schema %q not found", name)
	}
	return ref.Value, nil
}
