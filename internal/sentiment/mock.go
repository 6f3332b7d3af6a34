package sentiment

import (
	"context"
	"fmt"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
)

var mockTemplates = []domain.SentimentAnalysis{
	{
		SentimentScore: 0.65,
		Reasoning:      "Strong earnings beat expectations with positive guidance. Market fundamentals remain solid with increased institutional interest.",
		KeyTopics:      []string{"earnings beat", "positive guidance", "institutional buying"},
	},
	{
		SentimentScore: 0.35,
		Reasoning:      "Mixed results with revenue growth offset by margin pressure. Market awaits clarity on future direction.",
		KeyTopics:      []string{"revenue growth", "margin pressure", "market uncertainty"},
	},
	{
		SentimentScore: -0.25,
		Reasoning:      "Concerns mount over sector headwinds and competitive pressures. Recent news suggests cautious near-term outlook.",
		KeyTopics:      []string{"sector headwinds", "competition", "cautious outlook"},
	},
	{
		SentimentScore: 0.8,
		Reasoning:      "Exceptional momentum driven by breakthrough developments and expanding market opportunity. Bulls firmly in control.",
		KeyTopics:      []string{"breakthrough", "market expansion", "bullish momentum"},
	},
	{
		SentimentScore: -0.5,
		Reasoning:      "Significant challenges ahead with regulatory scrutiny and market share losses. Defensive positioning recommended.",
		KeyTopics:      []string{"regulatory risk", "market share loss", "defensive stance"},
	},
	{
		SentimentScore: 0.15,
		Reasoning:      "Stable but unexciting outlook. Company executing steadily without major catalysts on the horizon.",
		KeyTopics:      []string{"stable operations", "limited catalysts", "steady execution"},
	},
}

// MockScorer picks a canned analysis from the asset name and the current
// hour, so results are stable within an hour and cost nothing.
type MockScorer struct {
	now func() time.Time
}

func NewMockScorer() *MockScorer {
	return &MockScorer{now: time.Now}
}

func (m *MockScorer) Score(_ context.Context, assetName, _ string) (domain.SentimentAnalysis, error) {
	hourBucket := m.now().UnixMilli() / int64(time.Hour/time.Millisecond)
	idx := int64(stringHash(assetName)) + hourBucket
	if idx < 0 {
		idx = -idx
	}
	tpl := mockTemplates[idx%int64(len(mockTemplates))]

	return domain.SentimentAnalysis{
		SentimentScore: tpl.SentimentScore,
		Reasoning:      fmt.Sprintf("[MOCK] %s: %s", assetName, tpl.Reasoning),
		KeyTopics:      append([]string(nil), tpl.KeyTopics...),
	}, nil
}

// stringHash is the classic 31-multiplier string hash over UTF-16 code
// units, wrapping at 32 bits.
func stringHash(s string) int32 {
	var h int32
	for _, c := range utf16Units(s) {
		h = (h << 5) - h + int32(c)
	}
	return h
}

func utf16Units(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			units = append(units, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
			continue
		}
		units = append(units, uint16(r))
	}
	return units
}
