package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"strategist/pkg/advice"

	"google.golang.org/genai"
)

// GeminiProvider generates structured advice with Google's Gemini API.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", advice.ErrConfiguration)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model, timeout: timeout}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(req.UserText, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    req.Schema,
			Temperature:       genai.Ptr(req.Temperature),
			SafetySettings:    req.Safety,
		},
	)
	if err != nil {
		return "", classifyProviderError(err)
	}
	return resp.Text(), nil
}

// classifyProviderError separates capacity exhaustion, which callers may
// retry, from every other provider failure.
func classifyProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: provider timed out", advice.ErrUpstream)
	}

	var code int
	var status, msg string
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status, msg = apiErr.Code, apiErr.Status, apiErr.Message
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code, status, msg = apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message
	default:
		msg = err.Error()
	}

	if isOverload(code, status, msg) {
		return fmt.Errorf("%w: %s", advice.ErrUpstreamOverloaded, msg)
	}
	return fmt.Errorf("%w: %s", advice.ErrUpstream, msg)
}

func isOverload(code int, status, msg string) bool {
	switch code {
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return true
	}
	switch status {
	case "UNAVAILABLE", "RESOURCE_EXHAUSTED":
		return true
	}
	return strings.Contains(strings.ToLower(msg), "overloaded")
}
