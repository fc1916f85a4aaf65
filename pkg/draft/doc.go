// Package draft persists in-progress form values under one fixed key of a
// key-value store and restores them on the next start.
//
// The record is a flat JSON object mapping field ids to strings, or to
// booleans for checkboxes (only the checked state of a checkbox is kept).
// Persistence problems never reach the user: Store logs them and behaves as
// if no draft existed.
package draft
