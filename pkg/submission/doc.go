// Package submission validates a whole form and hands it to a remote
// acceptor, one attempt at a time.
//
// A Coordinator moves through Idle, Validating and Submitting. A call made
// while another attempt is in flight is rejected without touching the
// acceptor. Whatever happens inside an attempt (an invalid form, a remote
// failure, a panic in a collaborator) the coordinator returns to Idle and
// the busy indicator is hidden again.
package submission
