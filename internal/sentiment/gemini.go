package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"google.golang.org/genai"
)

// ErrEmptyCompletion is returned when the model answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"sentimentScore": {
			Type:        genai.TypeNumber,
			Description: "Sentiment from -1 (bearish) to 1 (bullish)",
			Minimum:     ptr(-1.0),
			Maximum:     ptr(1.0),
		},
		"reasoning": {
			Type:        genai.TypeString,
			Description: "Why this sentiment?",
		},
		"keyTopics": {
			Type:        genai.TypeArray,
			Description: "Main themes driving the sentiment",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"sentimentScore", "reasoning", "keyTopics"},
}

// GenerativeModel is the slice of the genai models API the scorer needs.
type GenerativeModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiScorer asks a Gemini model for a structured sentiment analysis.
type GeminiScorer struct {
	models GenerativeModel
	model  string
}

func NewGeminiScorer(ctx context.Context, apiKey, model string) (*GeminiScorer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiScorer{models: client.Models, model: model}, nil
}

func (g *GeminiScorer) Score(ctx context.Context, assetName, newsContext string) (domain.SentimentAnalysis, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt(assetName)}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    analysisSchema,
		Temperature:       ptr(float32(0.2)),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(newsContext), cfg)
	if err != nil {
		return domain.SentimentAnalysis{}, fmt.Errorf("generate content for %s: %w", assetName, err)
	}
	return parseAnalysis(resp.Text())
}

func parseAnalysis(text string) (domain.SentimentAnalysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.SentimentAnalysis{}, ErrEmptyCompletion
	}

	var out domain.SentimentAnalysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return domain.SentimentAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	out.SentimentScore = clamp(out.SentimentScore)
	if out.KeyTopics == nil {
		out.KeyTopics = []string{}
	}
	return out, nil
}

func clamp(score float64) float64 {
	return max(-1, min(1, score))
}

func ptr[T any](v T) *T {
	return &v
}
