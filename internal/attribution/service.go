package attribution

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/contwre/leadflow/internal/domain"
	"github.com/contwre/leadflow/internal/pkg/logger"
)

// sourceKeys are the non-standard fallback attribution parameters, consulted
// only when utm_source is absent.
var sourceKeys = []string{"source", "ref", "referrer"}

// Service implements attribution capture. It is safe for concurrent use.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an attribution service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Capture builds an attribution snapshot from a reported page visit and
// stores it for the session when it should take effect: either the URL
// carries campaign parameters, or nothing is stored yet. The freshly built
// snapshot is returned either way.
//
// Capture never fails the caller. Storage faults are logged and the
// in-memory snapshot is returned so dispatch can proceed with best-effort
// attribution.
func (s *Service) Capture(ctx context.Context, sessionID string, visit domain.PageVisit, ip, userAgent string) domain.AttributionSnapshot {
	snap := s.build(visit, ip, userAgent)

	visited, err := s.repo.Visited(ctx, sessionID)
	if err != nil {
		logger.Warn("attribution: visited flag read failed", "session_id", sessionID, "error", err)
	}
	snap.FirstVisit = !visited

	store := snap.HasUTM()
	if !store {
		if _, err := s.repo.Get(ctx, sessionID); err != nil {
			store = true
		}
	}
	if store {
		if err := s.repo.Put(ctx, sessionID, &snap); err != nil {
			logger.Warn("attribution: snapshot store failed", "session_id", sessionID, "error", err)
		}
		if err := s.repo.MarkVisited(ctx, sessionID); err != nil {
			logger.Warn("attribution: visited flag store failed", "session_id", sessionID, "error", err)
		}
	}
	return snap
}

// Snapshot returns the session's stored attribution. When nothing is stored
// (direct API hit, expired session) it degrades to a snapshot with default
// fields rather than failing: losing attribution detail is acceptable,
// losing the lead event is not.
func (s *Service) Snapshot(ctx context.Context, sessionID string) domain.AttributionSnapshot {
	snap, err := s.repo.Get(ctx, sessionID)
	if err == nil {
		return *snap
	}
	if !errors.Is(err, ErrNotFound) {
		logger.Warn("attribution: snapshot read failed", "session_id", sessionID, "error", err)
	}
	return s.Capture(ctx, sessionID, domain.PageVisit{}, "", "")
}

// build assembles a snapshot from the raw visit without touching storage.
func (s *Service) build(visit domain.PageVisit, ip, userAgent string) domain.AttributionSnapshot {
	snap := domain.AttributionSnapshot{
		Referrer:     visit.Referrer,
		LandingPage:  visit.PageURL,
		UserAgent:    userAgent,
		IPAddress:    ip,
		ScreenWidth:  visit.ScreenWidth,
		ScreenHeight: visit.ScreenHeight,
		Language:     visit.Language,
		Timezone:     visit.Timezone,
		CapturedAt:   s.now().UTC(),
	}
	if snap.Referrer == "" {
		snap.Referrer = domain.ReferrerDirect
	}

	query := parseQuery(visit.PageURL)
	snap.UTMSource = query.Get("utm_source")
	snap.UTMMedium = query.Get("utm_medium")
	snap.UTMCampaign = query.Get("utm_campaign")
	snap.UTMTerm = query.Get("utm_term")
	snap.UTMContent = query.Get("utm_content")

	if snap.UTMSource == "" {
		for _, key := range sourceKeys {
			if v := query.Get(key); v != "" {
				snap.Source = v
				break
			}
		}
	}
	return snap
}

// parseQuery extracts the query string from a full page URL. A malformed
// URL yields empty values, never an error surfaced to the visitor flow.
func parseQuery(pageURL string) url.Values {
	u, err := url.Parse(pageURL)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}
