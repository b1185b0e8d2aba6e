// Gemini-backed Generator, for deployments keyed to Google's API.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini implements Generator using the Google Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Result, error) {
	model := g.client.GenerativeModel(g.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	prompt := req.Prompt
	if req.ResponseFormat != "" {
		prompt += "\n\nRespond ONLY in this format:\n" + req.ResponseFormat
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return &Result{Success: false, ErrorDetail: fmt.Sprintf("gemini call: %v", err)}, nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &Result{Success: false, ErrorDetail: "gemini: empty response"}, nil
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	if text == "" {
		return &Result{Success: false, ErrorDetail: "gemini: no text parts"}, nil
	}

	slog.Debug("gemini call", "model", g.model, "chars", len(text))
	return &Result{Success: true, Response: text}, nil
}
