package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contwre/leadflow/internal/domain"
)

func sampleEvent() domain.LeadEvent {
	return domain.LeadEvent{
		ID:        "evt-001",
		SessionID: "sess-001",
		Type:      domain.EventQualified,
		Email:     "a@b.com",
		Answers: []domain.Answer{
			{QuestionID: "revenue_stage", Value: "100k-1m"},
			{QuestionID: "biggest_challenge", Value: "lead_generation"},
			{QuestionID: "primary_channel", Value: "outbound"},
			{QuestionID: "timeline", Value: "immediate"},
		},
		SecondsOnModal: 42,
		Attribution: domain.AttributionSnapshot{
			UTMSource:   "linkedin",
			UTMCampaign: "launch",
			Referrer:    domain.ReferrerDirect,
			LandingPage: "https://contwre.com/?utm_source=linkedin",
			FirstVisit:  true,
			CapturedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		OccurredAt: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestDispatch_Success(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("payload not valid JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(srv.URL, 5*time.Second)
	if derr := d.Dispatch(context.Background(), sampleEvent()); derr != nil {
		t.Fatalf("Dispatch: %v", derr)
	}

	if received["event_type"] != "qualified" {
		t.Errorf("event_type = %v", received["event_type"])
	}
	if received["email"] != "a@b.com" {
		t.Errorf("email = %v", received["email"])
	}
	if received["utm_source"] != "linkedin" {
		t.Errorf("utm_source = %v (snapshot fields must flatten to top level)", received["utm_source"])
	}
	answers, ok := received["answers"].(map[string]any)
	if !ok {
		t.Fatalf("answers missing or wrong shape: %v", received["answers"])
	}
	if len(answers) != 4 || answers["timeline"] != "immediate" {
		t.Errorf("answers = %v", answers)
	}
}

func TestDispatch_Non2xxReturnsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "intake is down", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := New(srv.URL, 5*time.Second)
	derr := d.Dispatch(context.Background(), sampleEvent())
	if derr == nil {
		t.Fatal("expected delivery error on 502")
	}
	if derr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", derr.StatusCode)
	}
	if derr.Body == "" {
		t.Error("expected response excerpt for diagnostics")
	}
}

func TestDispatch_NetworkFailure(t *testing.T) {
	// Server started then immediately closed: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := New(url, time.Second)
	derr := d.Dispatch(context.Background(), sampleEvent())
	if derr == nil {
		t.Fatal("expected delivery error on refused connection")
	}
	if derr.Err == nil {
		t.Error("network failures should carry the transport error")
	}
}

func TestDispatch_SingleRequestNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(srv.URL, time.Second)
	d.Dispatch(context.Background(), sampleEvent())
	if calls != 1 {
		t.Errorf("expected exactly one request, got %d", calls)
	}
}

func TestDeliveryError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	derr := &DeliveryError{Err: cause}
	if !errors.Is(derr, cause) {
		t.Error("DeliveryError should unwrap to its cause")
	}
}

func TestPayload_RoundTrip(t *testing.T) {
	evt := sampleEvent()
	data, err := json.Marshal(NewPayload(evt))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.EventType != evt.Type || decoded.Email != evt.Email {
		t.Errorf("identity fields lost: %+v", decoded)
	}
	if decoded.UTMSource != "linkedin" || decoded.UTMCampaign != "launch" {
		t.Errorf("attribution fields lost: %+v", decoded.AttributionSnapshot)
	}
	if !decoded.FirstVisit {
		t.Error("first_visit lost")
	}
	if len(decoded.Answers) != 4 {
		t.Errorf("answers lost: %v", decoded.Answers)
	}
	want := []string{"revenue_stage", "biggest_challenge", "primary_channel", "timeline"}
	if len(decoded.AnswerOrder) != len(want) {
		t.Fatalf("answer_order = %v", decoded.AnswerOrder)
	}
	for i, q := range want {
		if decoded.AnswerOrder[i] != q {
			t.Errorf("answer_order[%d] = %q, want %q", i, decoded.AnswerOrder[i], q)
		}
	}
	if !decoded.Timestamp.Equal(evt.OccurredAt) {
		t.Errorf("timestamp = %v, want %v", decoded.Timestamp, evt.OccurredAt)
	}
}

func TestPayload_OmitsAbsentAttribution(t *testing.T) {
	evt := sampleEvent()
	evt.Attribution = domain.AttributionSnapshot{Referrer: domain.ReferrerDirect}

	data, err := json.Marshal(NewPayload(evt))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "source"} {
		if _, present := raw[key]; present {
			t.Errorf("absent optional %q should be omitted from payload", key)
		}
	}
	if raw["referrer"] != "direct" {
		t.Errorf("referrer = %v", raw["referrer"])
	}
	if _, present := raw["answers"]; !present {
		t.Error("answers object must always be present, even when empty")
	}
}
