package domain

import "time"

// AttributionSnapshot captures how and when a visitor arrived: UTM campaign
// parameters, referrer, landing page, and device/locale facts. It is computed
// once per visitor session and reused for every event dispatched within that
// session. Optional attribution fields are omitted from JSON when absent.
type AttributionSnapshot struct {
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`

	// Source is the fallback attribution from non-standard query keys
	// (source, ref, referrer). Only set when utm_source is absent.
	Source string `json:"source,omitempty"`

	Referrer    string `json:"referrer"`
	LandingPage string `json:"landing_page"`

	UserAgent    string `json:"user_agent,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	ScreenWidth  int    `json:"screen_width,omitempty"`
	ScreenHeight int    `json:"screen_height,omitempty"`
	Language     string `json:"language,omitempty"`
	Timezone     string `json:"timezone,omitempty"`

	FirstVisit bool      `json:"first_visit"`
	CapturedAt time.Time `json:"captured_at"`
}

// HasUTM reports whether the snapshot carries at least one campaign
// parameter. Snapshots with UTM data overwrite previously stored attribution;
// snapshots without it never do.
func (s AttributionSnapshot) HasUTM() bool {
	return s.UTMSource != "" || s.UTMMedium != "" || s.UTMCampaign != "" ||
		s.UTMTerm != "" || s.UTMContent != "" || s.Source != ""
}

// ReferrerDirect is recorded when the visitor arrived with no referrer.
const ReferrerDirect = "direct"

// PageVisit is the raw page-load context reported by the landing page:
// the full landing URL plus the browser facts only the client can observe.
type PageVisit struct {
	PageURL      string `json:"page_url"`
	Referrer     string `json:"referrer"`
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
	Language     string `json:"language"`
	Timezone     string `json:"timezone"`
}
