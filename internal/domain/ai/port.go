package ai

import "context"

// Media is an inline binary attachment for multimodal prompts.
type Media struct {
	MIMEType string
	Data     []byte
}

// Completer is the text-completion port (OpenAI backend).
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
}

// Vision is the multimodal port (Gemini backend). media may be nil for
// text-only prompts.
type Vision interface {
	Generate(ctx context.Context, prompt string, media *Media) (string, error)
	ModelName() string
}

// OCR extracts visible text from an image.
type OCR interface {
	ExtractText(ctx context.Context, media Media) (text string, confidence float64, err error)
}
