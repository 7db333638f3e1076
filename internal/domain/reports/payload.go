package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload is the JSON object the AI backend must return. It is the only shape
// allowed past the upstream boundary; anything else becomes a typed error.
type Payload struct {
	CredibilityScore int      `json:"credibilityScore"`
	Analysis         string   `json:"analysis"`
	Flags            []string `json:"flags"`
	Recommendations  []string `json:"recommendations"`
	Reasoning        string   `json:"reasoning"`

	// Only the native image-vision prompt asks for these.
	ExtractedText     string `json:"extractedText,omitempty"`
	TechnicalFindings string `json:"technicalFindings,omitempty"`
}

// ParsePayload extracts the first balanced {...} block from raw (models sometimes
// wrap the JSON in prose or code fences), unmarshals it and validates the schema.
func ParsePayload(raw string) (*Payload, error) {
	block, ok := firstJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
	}

	var p Payload
	dec := json.NewDecoder(strings.NewReader(block))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if p.CredibilityScore < 0 || p.CredibilityScore > 100 {
		return nil, fmt.Errorf("%w: credibilityScore %d out of range [0,100]", ErrSchemaViolation, p.CredibilityScore)
	}
	if strings.TrimSpace(p.Analysis) == "" {
		return nil, fmt.Errorf("%w: missing analysis", ErrSchemaViolation)
	}
	if strings.TrimSpace(p.Reasoning) == "" {
		return nil, fmt.Errorf("%w: missing reasoning", ErrSchemaViolation)
	}
	if p.Flags == nil {
		return nil, fmt.Errorf("%w: missing flags", ErrSchemaViolation)
	}
	if p.Recommendations == nil {
		return nil, fmt.Errorf("%w: missing recommendations", ErrSchemaViolation)
	}
	return &p, nil
}

// ToReport builds the immutable row from a validated payload.
func (p *Payload) ToReport(userID *string, contentType ContentType, preview string, now time.Time) *Report {
	return &Report{
		UserID:           userID,
		ContentType:      contentType,
		ContentPreview:   Truncate(preview, StoredPreviewLimit),
		CredibilityScore: p.CredibilityScore,
		Analysis:         p.Analysis,
		Flags:            p.Flags,
		Recommendations:  p.Recommendations,
		Reasoning:        p.Reasoning,
		CreatedAt:        now,
	}
}

// firstJSONObject scans for the first balanced top-level {...} block, skipping
// braces inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
