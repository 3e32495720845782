// Package qualify implements the post-capture qualifying flow: a linear
// multi-step questionnaire that walks a lead through a fixed question set
// and ends at a booking step.
//
// The state machine itself (flow.go) is pure and synchronous; the visual
// debounce between questions belongs to the front-end, not here. Manager
// (manager.go) owns the live sessions, enforces at-most-once terminal
// reporting, and runs the inactivity watchdog for leads that submit an
// email but never open the modal.
package qualify
