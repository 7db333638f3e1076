package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	domai "github.com/pishield/pishield/internal/domain/ai"
)

type Client struct {
	client *genai.Client
	Model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	cli, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	return &Client{client: cli, Model: model}, nil
}

func (c *Client) ModelName() string { return c.Model }

func (c *Client) Close() error { return c.client.Close() }

// Generate runs a single generateContent call with an optional inline media
// part and returns the concatenated text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string, media *domai.Media) (string, error) {
	model := c.client.GenerativeModel(c.Model)

	parts := []genai.Part{genai.Text(prompt)}
	if media != nil {
		parts = append(parts, genai.Blob{MIMEType: media.MIMEType, Data: media.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		if strings.Contains(err.Error(), "API key not valid") {
			return "", fmt.Errorf("%w: %v", domai.ErrInvalidAPIKey, err)
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domai.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", domai.ErrEmptyResponse
	}
	return sb.String(), nil
}
