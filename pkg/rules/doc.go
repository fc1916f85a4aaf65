// Package rules evaluates enrollment form fields against a table of
// declarative rules. A rule combines a required flag, a minimum length, a
// compiled pattern and an optional custom predicate; the engine applies them
// in that order and stops at the first failure. Evaluation is pure: callers
// decide how to present a Result (inline message, success marker, nothing).
//
// Date predicates operate on calendar dates in an explicit time zone carried
// by Calendar, so a birth date or enrollment date is judged the same way no
// matter where the process runs.
package rules
