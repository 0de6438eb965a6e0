package inference

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini is a VisionModel backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a client for the given model name.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: empty API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, png []byte, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(png, "image/png"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
