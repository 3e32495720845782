package qualify

import (
	"time"

	"github.com/contwre/leadflow/internal/domain"
)

// Session is one showing of the qualifying modal. It advances strictly
// forward: Question(0) .. Question(N-1), then the booking step. A session
// is terminal once a qualified or drop-off event has been reported for it.
//
// Session is not safe for concurrent use; Manager serializes access.
type Session struct {
	Email     string
	Questions []domain.Question

	// StepIndex ranges over [0, len(Questions)]; the top value is the
	// booking step. Invariant: len(Answers) == StepIndex throughout the
	// questioning phase.
	StepIndex int
	Answers   []domain.Answer

	OpenedAt time.Time
	reported bool
}

// NewSession starts a session at the first question.
func NewSession(email string, questions []domain.Question, openedAt time.Time) *Session {
	return &Session{Email: email, Questions: questions, OpenedAt: openedAt}
}

// InBooking reports whether every question has been answered and the
// booking step is on screen.
func (s *Session) InBooking() bool {
	return s.StepIndex >= len(s.Questions)
}

// Answer records a response and advances to the next step. Three cases:
//
//   - questionID matches the current question: record and advance.
//   - questionID matches an already-answered question: overwrite that
//     answer in place without advancing (the visitor re-selected).
//   - anything else: ignored. Answering past the booking step or against
//     an unknown question is a caller bug, and clamping beats corrupting
//     the answer list.
//
// The returned bool reports whether the session advanced.
func (s *Session) Answer(questionID, value string) bool {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			s.Answers[i].Value = value
			return false
		}
	}
	if s.InBooking() || s.Questions[s.StepIndex].ID != questionID {
		return false
	}
	s.Answers = append(s.Answers, domain.Answer{QuestionID: questionID, Value: value})
	s.StepIndex++
	return true
}

// DropOffStage derives how far the visitor got, for abandonment reporting.
func (s *Session) DropOffStage() domain.DropOffStage {
	switch {
	case s.InBooking():
		return domain.StageViewedBooking
	case len(s.Answers) == 0:
		return domain.StageEmailOnly
	default:
		return domain.StageQuestion(len(s.Answers) + 1)
	}
}

// markReported flips the terminal-event guard. It returns true exactly
// once per session: the first caller owns sending the terminal event,
// every later caller sends nothing.
func (s *Session) markReported() bool {
	if s.reported {
		return false
	}
	s.reported = true
	return true
}

// secondsOpen is the dwell time for terminal events.
func (s *Session) secondsOpen(now time.Time) int {
	d := int(now.Sub(s.OpenedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
