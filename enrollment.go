// Package enrollment is the top-level entry point of the student enrollment
// form engine. It re-exports the orchestrator so callers can assemble a
// session without importing the pipeline packages one by one.
package enrollment

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-enrollment/pkg/orchestrator"
	"github.com/goliatone/go-enrollment/pkg/page"
)

// Enrollment aliases the assembled pipeline returned by Open.
type Enrollment = orchestrator.Enrollment

// Option aliases orchestrator.Option for callers configuring Open.
type Option = orchestrator.Option

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Open builds the enrollment pipeline and starts its session: the draft is
// restored and date bounds are resolved before Open returns. Callers own the
// returned value and must Close it.
func Open(ctx context.Context, options ...Option) (*Enrollment, error) {
	enr, err := orchestrator.New(options...).Open(ctx)
	if err != nil {
		return nil, err
	}
	if err := enr.Start(ctx); err != nil {
		_ = enr.Close()
		return nil, err
	}
	return enr, nil
}

// EmbeddedTemplates exposes the built-in page templates.
func EmbeddedTemplates() fs.FS {
	return page.TemplatesFS()
}
