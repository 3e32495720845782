package qualify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contwre/leadflow/internal/attribution"
	"github.com/contwre/leadflow/internal/dispatch"
	"github.com/contwre/leadflow/internal/domain"
	"github.com/contwre/leadflow/internal/pkg/logger"
)

// dispatchTimeout bounds each background webhook delivery.
const dispatchTimeout = 10 * time.Second

// Dispatcher delivers lead events. Satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt domain.LeadEvent) *dispatch.DeliveryError
}

// pendingLead tracks a submitted email whose modal has not opened yet.
type pendingLead struct {
	email string
	timer *time.Timer
}

// Manager owns the live qualifying sessions for all visitors. All state
// transitions happen under one mutex; webhook deliveries run on background
// goroutines so no visitor-facing call ever waits on the network.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]*pendingLead

	attr       *attribution.Service
	dispatcher Dispatcher
	questions  []domain.Question
	inactivity time.Duration
	now        func() time.Time

	inflight sync.WaitGroup
	closed   bool
}

// NewManager creates a session manager. inactivity is how long to wait
// after an email submission for the modal to open before reporting a
// no_popup drop-off; zero disables the watchdog.
func NewManager(attr *attribution.Service, d Dispatcher, questions []domain.Question, inactivity time.Duration) *Manager {
	return &Manager{
		sessions:   make(map[string]*Session),
		pending:    make(map[string]*pendingLead),
		attr:       attr,
		dispatcher: d,
		questions:  questions,
		inactivity: inactivity,
		now:        time.Now,
	}
}

// Questions returns the question set the flow walks through.
func (m *Manager) Questions() []domain.Question { return m.questions }

// EmailSubmitted handles a successful capture-form submission: it fires
// the email_submitted event and arms the inactivity watchdog. Resubmitting
// re-arms the watchdog rather than stacking timers.
func (m *Manager) EmailSubmitted(ctx context.Context, sessionID, email string) {
	snap := m.attr.Snapshot(ctx, sessionID)
	m.send(m.newEvent(sessionID, domain.EventEmailSubmitted, email, snap))

	if m.inactivity <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if p, ok := m.pending[sessionID]; ok {
		p.timer.Stop()
	}
	p := &pendingLead{email: email}
	p.timer = time.AfterFunc(m.inactivity, func() { m.inactivityFired(sessionID) })
	m.pending[sessionID] = p
}

// inactivityFired reports a no_popup drop-off, unless the modal opened
// (or the watchdog was re-armed) in the meantime.
func (m *Manager) inactivityFired(sessionID string) {
	m.mu.Lock()
	p, ok := m.pending[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.pending, sessionID)
	if _, open := m.sessions[sessionID]; open {
		m.mu.Unlock()
		return
	}
	email := p.email
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	snap := m.attr.Snapshot(ctx, sessionID)
	evt := m.newEvent(sessionID, domain.EventDropOff, email, snap)
	evt.DropOffStage = domain.StageNoPopup
	m.send(evt)
}

// Open starts a qualifying session at the first question and cancels the
// inactivity watchdog. Reopening after a terminal event starts a fresh
// session with its own reporting guard.
func (m *Manager) Open(ctx context.Context, sessionID, email string) {
	m.mu.Lock()
	if p, ok := m.pending[sessionID]; ok {
		p.timer.Stop()
		delete(m.pending, sessionID)
		if email == "" {
			email = p.email
		}
	}
	m.sessions[sessionID] = NewSession(email, m.questions, m.now())
	m.mu.Unlock()
}

// Progress is the flow position returned to the front-end after an answer.
type Progress struct {
	StepIndex     int  `json:"step_index"`
	QuestionCount int  `json:"question_count"`
	InBooking     bool `json:"in_booking"`
}

// Answer records a response for the session's current question. Calls for
// unknown sessions or out-of-order questions are absorbed: the visitor's
// visual flow always proceeds.
func (m *Manager) Answer(ctx context.Context, sessionID, questionID, value string) Progress {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		logger.Warn("qualify: answer for unknown session", "session_id", sessionID, "question_id", questionID)
		return Progress{QuestionCount: len(m.questions)}
	}
	s.Answer(questionID, value)
	return Progress{StepIndex: s.StepIndex, QuestionCount: len(s.Questions), InBooking: s.InBooking()}
}

// Complete finishes the flow from the booking step: exactly one qualified
// event per session, then the session is gone.
func (m *Manager) Complete(ctx context.Context, sessionID string) {
	m.finish(ctx, sessionID, domain.EventQualified)
}

// Dismiss handles the visitor closing the modal before completing: exactly
// one drop_off event per session, staged by progress.
func (m *Manager) Dismiss(ctx context.Context, sessionID string) {
	m.finish(ctx, sessionID, domain.EventDropOff)
}

func (m *Manager) finish(ctx context.Context, sessionID string, typ domain.EventType) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok || !s.markReported() {
		return
	}

	snap := m.attr.Snapshot(ctx, sessionID)
	evt := m.newEvent(sessionID, typ, s.Email, snap)
	evt.Answers = s.Answers
	evt.SecondsOnModal = s.secondsOpen(m.now())
	if typ == domain.EventDropOff {
		evt.DropOffStage = s.DropOffStage()
	}
	m.send(evt)
}

func (m *Manager) newEvent(sessionID string, typ domain.EventType, email string, snap domain.AttributionSnapshot) domain.LeadEvent {
	return domain.LeadEvent{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Type:        typ,
		Email:       email,
		Attribution: snap,
		OccurredAt:  m.now().UTC(),
	}
}

// send delivers the event on a background goroutine. Delivery failures are
// logged and dropped; transitions never wait on the webhook.
func (m *Manager) send(evt domain.LeadEvent) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if derr := m.dispatcher.Dispatch(ctx, evt); derr != nil {
			logger.Error("qualify: event delivery failed",
				"event_type", string(evt.Type),
				"event_id", evt.ID,
				"session_id", evt.SessionID,
				"error", derr)
			return
		}
		logger.Info("qualify: event delivered",
			"event_type", string(evt.Type),
			"event_id", evt.ID,
			"session_id", evt.SessionID,
			"email", evt.Email)
	}()
}

// Close stops all inactivity timers and waits for in-flight deliveries.
// Used on graceful shutdown so terminal events already triggered are not
// lost with the process.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for id, p := range m.pending {
		p.timer.Stop()
		delete(m.pending, id)
	}
	m.mu.Unlock()
	m.inflight.Wait()
}
