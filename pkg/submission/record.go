package submission

import (
	"context"

	"github.com/goliatone/go-enrollment/pkg/form"
)

// Record is the flat payload sent to an acceptor.
type Record map[string]string

// Collect builds the submission payload. Checked checkboxes carry their
// value attribute and unchecked ones are left out.
func Collect(fields []form.Field) Record {
	rec := make(Record, len(fields))
	for _, field := range fields {
		if field.IsCheckbox() {
			if field.Checked {
				rec[field.ID] = field.Value
			}
			continue
		}
		rec[field.ID] = field.Value
	}
	return rec
}

// Receipt identifies an accepted submission.
type Receipt struct {
	ID string `json:"id"`
}

// Acceptor receives a validated record.
type Acceptor interface {
	Accept(ctx context.Context, record Record) (Receipt, error)
}

// AcceptorFunc adapts a function to Acceptor.
type AcceptorFunc func(ctx context.Context, record Record) (Receipt, error)

// Accept calls fn.
func (fn AcceptorFunc) Accept(ctx context.Context, record Record) (Receipt, error) {
	return fn(ctx, record)
}

type attemptKey struct{}

// WithAttemptID stores the correlation id of a submission attempt.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptKey{}, id)
}

// AttemptIDFrom returns the correlation id stored by WithAttemptID.
func AttemptIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(attemptKey{}).(string)
	return id, ok && id != ""
}
