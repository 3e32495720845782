// Package attribution implements the session-scoped attribution store.
//
// A visitor's attribution (UTM parameters, referrer, landing page, device
// facts) is captured once per session and reused for every lead event
// dispatched within that session. Internal navigation without campaign
// parameters never disturbs stored attribution; arriving on a fresh
// campaign link overwrites it.
//
// The service layer contains pure capture/merge logic and depends on the
// Repository interface defined in repository.go. It never imports net/http
// directly.
package attribution
