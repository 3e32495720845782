package domain

// Option is one selectable choice for a qualifying question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is a single step of the qualifying flow. The flow supports any
// number of questions; the default set below matches the live site.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// DefaultQuestions returns the qualifying question set shown after email
// capture. Order matters: the flow walks these front to back.
func DefaultQuestions() []Question {
	return []Question{
		{
			ID:   "revenue_stage",
			Text: "What's your current revenue stage?",
			Options: []Option{
				{Value: "pre-revenue", Label: "Pre-revenue / Just starting"},
				{Value: "0-100k", Label: "$0 - $100K ARR"},
				{Value: "100k-1m", Label: "$100K - $1M ARR"},
				{Value: "1m-5m", Label: "$1M - $5M ARR"},
				{Value: "5m+", Label: "$5M+ ARR"},
			},
		},
		{
			ID:   "biggest_challenge",
			Text: "What's your biggest GTM challenge right now?",
			Options: []Option{
				{Value: "lead_generation", Label: "Lead generation & pipeline"},
				{Value: "sales_process", Label: "Sales process & conversion"},
				{Value: "marketing_attribution", Label: "Marketing attribution & ROI"},
				{Value: "team_scaling", Label: "Team scaling & enablement"},
				{Value: "full_gtm", Label: "Need full GTM system"},
			},
		},
		{
			ID:   "primary_channel",
			Text: "Which channel are you most interested in?",
			Options: []Option{
				{Value: "outbound", Label: "Cold Outbound Engine"},
				{Value: "performance_marketing", Label: "Performance Marketing (Meta, Google, TikTok)"},
				{Value: "sales_enablement", Label: "Sales Enablement & CRM"},
				{Value: "full_service", Label: "Full-service GTM (All channels)"},
			},
		},
		{
			ID:   "timeline",
			Text: "What's your timeline to get started?",
			Options: []Option{
				{Value: "immediate", Label: "Immediate (This month)"},
				{Value: "1-3_months", Label: "1-3 months"},
				{Value: "3-6_months", Label: "3-6 months"},
				{Value: "exploring", Label: "Just exploring options"},
			},
		},
	}
}
