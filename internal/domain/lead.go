package domain

import (
	"strconv"
	"strings"
	"time"
)

// EventType classifies an outbound lead event.
type EventType string

const (
	// EventEmailSubmitted fires when the capture form submits a valid email.
	EventEmailSubmitted EventType = "email_submitted"
	// EventQualified fires when the visitor finishes the qualifying flow
	// and acknowledges the booking step.
	EventQualified EventType = "qualified"
	// EventDropOff fires when the visitor abandons the funnel before
	// completing it. At most one terminal event is sent per session.
	EventDropOff EventType = "drop_off"
)

// DropOffStage records how far the visitor got before abandoning.
type DropOffStage string

const (
	// StageNoPopup: email submitted but the qualifying modal never opened.
	StageNoPopup DropOffStage = "no_popup"
	// StageEmailOnly: modal opened but no question answered.
	StageEmailOnly DropOffStage = "email_only"
	// StageViewedBooking: every question answered, booking step shown,
	// but the visitor closed without completing.
	StageViewedBooking DropOffStage = "viewed_booking"
)

// StageQuestion returns the drop-off stage for a visitor who abandoned
// while question n (1-based) was on screen.
func StageQuestion(n int) DropOffStage {
	if n < 1 {
		n = 1
	}
	return DropOffStage("question_" + strconv.Itoa(n))
}

// Answer is a single recorded response: the question identifier and the
// selected option value.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// LeadEvent is a fully resolved funnel event, ready for dispatch. It pairs
// the event classification with the visitor's email, any answers collected
// so far, and the session's attribution snapshot.
type LeadEvent struct {
	ID             string
	SessionID      string
	Type           EventType
	Email          string
	Answers        []Answer
	DropOffStage   DropOffStage
	SecondsOnModal int
	Attribution    AttributionSnapshot
	OccurredAt     time.Time
}

// ValidEmail performs the minimal structural check the capture form relies
// on. Full deliverability verification is the webhook consumer's problem.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
