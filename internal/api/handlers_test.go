package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contwre/leadflow/internal/attribution"
	"github.com/contwre/leadflow/internal/dispatch"
	"github.com/contwre/leadflow/internal/domain"
	"github.com/contwre/leadflow/internal/qualify"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.LeadEvent
}

func (r *recordingDispatcher) Dispatch(_ context.Context, evt domain.LeadEvent) *dispatch.DeliveryError {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingDispatcher) all() []domain.LeadEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LeadEvent(nil), r.events...)
}

type testEnv struct {
	router  http.Handler
	rec     *recordingDispatcher
	manager *qualify.Manager
}

func setupTestAPI(t *testing.T) *testEnv {
	t.Helper()
	attr := attribution.NewService(attribution.NewMemoryRepository(30 * time.Minute))
	rec := &recordingDispatcher{}
	manager := qualify.NewManager(attr, rec, domain.DefaultQuestions(), 0)
	t.Cleanup(manager.Close)

	h := NewHandlers(attr, manager)
	return &testEnv{
		router:  SetupRoutes(h, []string{"https://contwre.com"}),
		rec:     rec,
		manager: manager,
	}
}

func (e *testEnv) do(t *testing.T, method, path, sid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.Header.Set(SessionHeader, sid)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHandleVisit_CapturesAttribution(t *testing.T) {
	env := setupTestAPI(t)

	w := env.do(t, http.MethodPost, "/v1/visits", "", map[string]any{
		"page_url":     "https://contwre.com/?utm_source=linkedin&utm_campaign=launch",
		"referrer":     "https://www.linkedin.com/",
		"screen_width": 1512,
		"language":     "en-US",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(SessionHeader), "server must mint a session ID")

	var resp struct {
		SessionID   string                     `json:"session_id"`
		Attribution domain.AttributionSnapshot `json:"attribution"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "linkedin", resp.Attribution.UTMSource)
	assert.Equal(t, "launch", resp.Attribution.UTMCampaign)
	assert.True(t, resp.Attribution.FirstVisit)
}

func TestHandleVisit_SessionIDEchoed(t *testing.T) {
	env := setupTestAPI(t)

	w := env.do(t, http.MethodPost, "/v1/visits", "my-session", map[string]any{
		"page_url": "https://contwre.com/",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "my-session", w.Header().Get(SessionHeader))
}

func TestHandleLead_RejectsInvalidEmail(t *testing.T) {
	env := setupTestAPI(t)

	for _, email := range []string{"", "not-an-email", "@nouser.com", "trailing@"} {
		w := env.do(t, http.MethodPost, "/v1/leads", "s1", map[string]string{"email": email})
		assert.Equal(t, http.StatusBadRequest, w.Code, "email %q should be rejected", email)
	}
	env.manager.Close()
	assert.Empty(t, env.rec.all(), "rejected submissions must not dispatch")
}

func TestHandleLead_DispatchesEmailSubmitted(t *testing.T) {
	env := setupTestAPI(t)

	w := env.do(t, http.MethodPost, "/v1/leads", "s1", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusAccepted, w.Code)

	env.manager.Close()
	events := env.rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventEmailSubmitted, events[0].Type)
	assert.Equal(t, "a@b.com", events[0].Email)
}

func TestFullFunnel_Qualified(t *testing.T) {
	env := setupTestAPI(t)
	sid := "funnel-1"

	env.do(t, http.MethodPost, "/v1/visits", sid, map[string]any{
		"page_url": "https://contwre.com/?utm_source=linkedin&utm_campaign=launch",
	})
	env.do(t, http.MethodPost, "/v1/leads", sid, map[string]string{"email": "a@b.com"})
	env.do(t, http.MethodPost, "/v1/leads/open", sid, map[string]string{"email": "a@b.com"})

	answers := []map[string]string{
		{"question_id": "revenue_stage", "value": "100k-1m"},
		{"question_id": "biggest_challenge", "value": "lead_generation"},
		{"question_id": "primary_channel", "value": "outbound"},
		{"question_id": "timeline", "value": "immediate"},
	}
	var progress qualify.Progress
	for _, a := range answers {
		w := env.do(t, http.MethodPost, "/v1/leads/answers", sid, a)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &progress))
	}
	assert.True(t, progress.InBooking, "all answers given, booking step expected")

	w := env.do(t, http.MethodPost, "/v1/leads/complete", sid, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	env.manager.Close()
	events := env.rec.all()
	require.Len(t, events, 2, "email_submitted + qualified")

	var qualified *domain.LeadEvent
	for i := range events {
		if events[i].Type == domain.EventQualified {
			qualified = &events[i]
		}
	}
	require.NotNil(t, qualified)
	assert.Len(t, qualified.Answers, 4)
	assert.Equal(t, "linkedin", qualified.Attribution.UTMSource, "terminal event carries session attribution")
}

func TestFullFunnel_DropOffAtBooking(t *testing.T) {
	env := setupTestAPI(t)
	sid := "funnel-2"

	env.do(t, http.MethodPost, "/v1/leads/open", sid, map[string]string{"email": "a@b.com"})
	for _, a := range []map[string]string{
		{"question_id": "revenue_stage", "value": "100k-1m"},
		{"question_id": "biggest_challenge", "value": "lead_generation"},
		{"question_id": "primary_channel", "value": "outbound"},
		{"question_id": "timeline", "value": "immediate"},
	} {
		env.do(t, http.MethodPost, "/v1/leads/answers", sid, a)
	}
	env.do(t, http.MethodPost, "/v1/leads/dismiss", sid, nil)
	// A duplicate dismiss (unmount race) must not produce a second event
	env.do(t, http.MethodPost, "/v1/leads/dismiss", sid, nil)

	env.manager.Close()
	events := env.rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventDropOff, events[0].Type)
	assert.Equal(t, domain.StageViewedBooking, events[0].DropOffStage)
	assert.Len(t, events[0].Answers, 4)
}

func TestHandleQuestions(t *testing.T) {
	env := setupTestAPI(t)

	w := env.do(t, http.MethodGet, "/v1/questions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Questions []domain.Question `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Questions, 4)
	assert.Equal(t, "revenue_stage", resp.Questions[0].ID)
	assert.NotEmpty(t, resp.Questions[0].Options)
}

func TestHandleHealth(t *testing.T) {
	env := setupTestAPI(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleAnswer_MalformedBody(t *testing.T) {
	env := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/leads/answers", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
