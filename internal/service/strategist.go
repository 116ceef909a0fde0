package service

import (
	"context"
	"fmt"
	"strings"

	"strategist/pkg/advice"

	"google.golang.org/genai"
)

// GenerateRequest is everything the provider needs for one structured
// generation.
type GenerateRequest struct {
	SystemInstruction string
	UserText          string
	Schema            *genai.Schema
	Temperature       float32
	Safety            []*genai.SafetySetting
}

// Provider produces JSON text conforming to req.Schema.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

const systemInstruction = `
You are a master strategist steeped in Sun Tzu's Art of War and the Thirty-Six Stratagems.
Analyze the user's conflict and provide detailed strategic advice.
- When a stratagem applies, the title must name it with its number, e.g. "Stratagem 6: Make a sound in the east, strike in the west".
- originalQuote is the classical passage the advice rests on.
- interpretation relates the passage to the user's situation in no more than three short paragraphs.
- actionableAdvice lists concrete steps, most important first.
- chineseCharacter is a single character capturing the essence of the advice; characterExplanation explains it in one sentence.
`

// StrategySchema is the fixed output shape requested from the provider.
func StrategySchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":                str(),
			"originalQuote":        str(),
			"interpretation":       str(),
			"actionableAdvice":     {Type: genai.TypeArray, Items: str()},
			"chineseCharacter":     str(),
			"characterExplanation": str(),
		},
		Required: []string{"title", "originalQuote", "interpretation", "actionableAdvice", "chineseCharacter", "characterExplanation"},
		PropertyOrdering: []string{
			"title", "originalQuote", "interpretation", "actionableAdvice", "chineseCharacter", "characterExplanation",
		},
	}
}

// SafetySettings only block high-severity content: conflict advice talks
// about rivals and confrontation by nature.
func SafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	}
}

type StrategistService struct {
	provider    Provider
	temperature float32
}

// NewStrategistService accepts a nil provider: the gateway still serves,
// answering every consultation with a configuration error.
func NewStrategistService(p Provider, temperature float32) *StrategistService {
	return &StrategistService{provider: p, temperature: temperature}
}

// Ready reports whether a provider credential is configured.
func (s *StrategistService) Ready() bool { return s.provider != nil }

// Advise returns the provider's structured JSON verbatim.
func (s *StrategistService) Advise(ctx context.Context, query string) ([]byte, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY missing in gateway environment.", advice.ErrConfiguration)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: Query is required", advice.ErrBadRequest)
	}

	text, err := s.provider.Generate(ctx, GenerateRequest{
		SystemInstruction: systemInstruction,
		UserText:          query,
		Schema:            StrategySchema(),
		Temperature:       s.temperature,
		Safety:            SafetySettings(),
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: No response from strategist", advice.ErrUpstreamEmpty)
	}
	return []byte(text), nil
}
