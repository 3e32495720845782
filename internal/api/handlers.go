// Package api exposes the lead capture pipeline to the landing page.
//
// Every endpoint absorbs pipeline faults: the visitor's visual flow always
// gets its happy-path response, and only malformed requests see a 4xx.
package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/contwre/leadflow/internal/attribution"
	"github.com/contwre/leadflow/internal/domain"
	"github.com/contwre/leadflow/internal/pkg/httputil"
	"github.com/contwre/leadflow/internal/pkg/logger"
	"github.com/contwre/leadflow/internal/qualify"
)

// SessionHeader carries the visitor session ID. The front-end echoes back
// whatever the first response handed it; a missing or blank header starts
// a new session.
const SessionHeader = "X-Session-ID"

// Handlers wires HTTP requests into the attribution and qualify services.
type Handlers struct {
	attr    *attribution.Service
	manager *qualify.Manager
}

// NewHandlers creates the API handler set.
func NewHandlers(attr *attribution.Service, manager *qualify.Manager) *Handlers {
	return &Handlers{attr: attr, manager: manager}
}

// sessionID resolves the visitor session, minting one when absent, and
// echoes it on the response so the front-end can persist it.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	sid := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sid == "" {
		sid = uuid.NewString()
	}
	w.Header().Set(SessionHeader, sid)
	return sid
}

// visitResponse returns the captured snapshot so the front-end can verify
// attribution during development.
type visitResponse struct {
	SessionID   string                     `json:"session_id"`
	Attribution domain.AttributionSnapshot `json:"attribution"`
}

// HandleVisit records a page load: POST /v1/visits.
func (h *Handlers) HandleVisit(w http.ResponseWriter, r *http.Request) {
	var visit domain.PageVisit
	if !httputil.Decode(w, r, &visit) {
		return
	}
	sid := sessionID(w, r)

	snap := h.attr.Capture(r.Context(), sid, visit, realIP(r), r.UserAgent())
	logger.Debug("api: visit captured",
		"session_id", sid,
		"landing_page", snap.LandingPage,
		"utm_source", snap.UTMSource,
		"first_visit", snap.FirstVisit)

	httputil.OK(w, visitResponse{SessionID: sid, Attribution: snap})
}

type leadRequest struct {
	Email string `json:"email"`
}

type leadResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// HandleLead records a capture-form submission: POST /v1/leads.
// Fires email_submitted and arms the no-popup watchdog.
func (h *Handlers) HandleLead(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if !domain.ValidEmail(req.Email) {
		httputil.BadRequest(w, "a valid email is required")
		return
	}
	sid := sessionID(w, r)

	h.manager.EmailSubmitted(r.Context(), sid, strings.TrimSpace(req.Email))
	httputil.Accepted(w, leadResponse{SessionID: sid, Status: "accepted"})
}

// HandleOpen records the qualifying modal opening: POST /v1/leads/open.
func (h *Handlers) HandleOpen(w http.ResponseWriter, r *http.Request) {
	var req leadRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	sid := sessionID(w, r)

	h.manager.Open(r.Context(), sid, strings.TrimSpace(req.Email))
	httputil.OK(w, leadResponse{SessionID: sid, Status: "open"})
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// HandleAnswer records one answer: POST /v1/leads/answers.
func (h *Handlers) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.QuestionID == "" || req.Value == "" {
		httputil.BadRequest(w, "question_id and value are required")
		return
	}
	sid := sessionID(w, r)

	progress := h.manager.Answer(r.Context(), sid, req.QuestionID, req.Value)
	httputil.OK(w, progress)
}

// HandleComplete acknowledges the booking step: POST /v1/leads/complete.
func (h *Handlers) HandleComplete(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	h.manager.Complete(r.Context(), sid)
	httputil.Accepted(w, leadResponse{SessionID: sid, Status: "completed"})
}

// HandleDismiss records the modal closing early: POST /v1/leads/dismiss.
func (h *Handlers) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	h.manager.Dismiss(r.Context(), sid)
	httputil.Accepted(w, leadResponse{SessionID: sid, Status: "dismissed"})
}

// HandleQuestions serves the question set: GET /v1/questions.
func (h *Handlers) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"questions": h.manager.Questions()})
}

// HandleHealth is the liveness probe: GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// realIP extracts the client address, honoring proxy headers.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
