package dispatch

import (
	"time"

	"github.com/contwre/leadflow/internal/domain"
)

// Payload is the wire format POSTed to the webhook. Answers are encoded as
// a structured per-question object (one schema, applied consistently); the
// attribution snapshot fields are flattened into the top level with absent
// optionals omitted.
type Payload struct {
	EventID   string           `json:"event_id"`
	EventType domain.EventType `json:"event_type"`
	SessionID string           `json:"session_id"`
	Email     string           `json:"email"`
	Timestamp time.Time        `json:"timestamp"`

	Answers        map[string]string   `json:"answers"`
	AnswerOrder    []string            `json:"answer_order,omitempty"`
	DropOffStage   domain.DropOffStage `json:"drop_off_stage,omitempty"`
	SecondsOnModal int                 `json:"seconds_on_modal,omitempty"`

	domain.AttributionSnapshot
}

// NewPayload flattens a lead event into its wire form. Answers always
// serialize as an object (empty when none); answer_order preserves the
// sequence the visitor answered in, which JSON objects cannot.
func NewPayload(evt domain.LeadEvent) Payload {
	p := Payload{
		EventID:             evt.ID,
		EventType:           evt.Type,
		SessionID:           evt.SessionID,
		Email:               evt.Email,
		Timestamp:           evt.OccurredAt.UTC(),
		Answers:             make(map[string]string, len(evt.Answers)),
		DropOffStage:        evt.DropOffStage,
		SecondsOnModal:      evt.SecondsOnModal,
		AttributionSnapshot: evt.Attribution,
	}
	for _, a := range evt.Answers {
		p.Answers[a.QuestionID] = a.Value
		p.AnswerOrder = append(p.AnswerOrder, a.QuestionID)
	}
	return p
}
