// Package orchestrator wires the enrollment pipeline (form definition, rule
// table, draft store, session, page renderer and API description) behind a
// single constructor, while keeping every stage injectable.
package orchestrator
