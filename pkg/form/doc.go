// Package form holds the live field model of the enrollment form and the
// YAML definition it is built from. Fields keep document order, which
// matters for "focus the first error" behaviour, and a Form is safe to use
// from HTTP handlers and timer callbacks at the same time.
//
// The default student enrollment definition is embedded and can be replaced
// by any definition file using the same schema:
//
//	name: studentForm
//	fields:
//	  - id: email
//	    label: Email Address *
//	    kind: email
//	    live: true
//	    rule:
//	      required: true
//	      pattern: '^[^\s@]+@[^\s@]+\.[^\s@]+$'
//	      message: Please enter a valid email address
package form
