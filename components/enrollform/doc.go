// Package enrollform serves one enrollment session over net/http: the
// rendered page, its legal documents, and a small JSON API for field events,
// drafts and submission.
//
// Browsers without scripting use the same endpoints through plain form
// posts; those requests are answered with a redirect back to the page, which
// then renders the banner and field states left by the action.
package enrollform
