package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrDeclined is returned when the user chose not to submit. The draft
	// is saved before it is returned.
	ErrDeclined = errors.New("prompt: submission declined")
)
