package reports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const goodJSON = `{
  "credibilityScore": 72,
  "analysis": "Mostly consistent with known reporting.",
  "flags": ["emotional language"],
  "recommendations": ["check the original source"],
  "reasoning": "Claims are verifiable and sourced."
}`

func TestParsePayload_CleanJSON(t *testing.T) {
	p, err := ParsePayload(goodJSON)
	require.NoError(t, err)
	require.Equal(t, 72, p.CredibilityScore)
	require.Equal(t, []string{"emotional language"}, p.Flags)
	require.Equal(t, []string{"check the original source"}, p.Recommendations)
}

func TestParsePayload_WrappedInProse(t *testing.T) {
	raw := "Sure! Here is the assessment you asked for:\n```json\n" + goodJSON + "\n```\nLet me know if you need anything else."
	p, err := ParsePayload(raw)
	require.NoError(t, err)
	require.Equal(t, 72, p.CredibilityScore)
}

func TestParsePayload_BracesInsideStrings(t *testing.T) {
	raw := `{"credibilityScore": 10, "analysis": "the text contains {odd} braces and a \" quote", "flags": [], "recommendations": [], "reasoning": "ok"}`
	p, err := ParsePayload(raw)
	require.NoError(t, err)
	require.Equal(t, "the text contains {odd} braces and a \" quote", p.Analysis)
}

func TestParsePayload_NoObject(t *testing.T) {
	_, err := ParsePayload("I could not produce a structured answer.")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParsePayload_InvalidJSON(t *testing.T) {
	_, err := ParsePayload(`{"credibilityScore": }`)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParsePayload_ScoreOutOfRange(t *testing.T) {
	for _, score := range []string{"-1", "101", "150"} {
		raw := `{"credibilityScore": ` + score + `, "analysis": "a", "flags": [], "recommendations": [], "reasoning": "r"}`
		_, err := ParsePayload(raw)
		require.ErrorIs(t, err, ErrSchemaViolation, "score %s must be rejected, not clamped", score)
	}
}

func TestParsePayload_MissingFields(t *testing.T) {
	cases := map[string]string{
		"analysis":        `{"credibilityScore": 50, "flags": [], "recommendations": [], "reasoning": "r"}`,
		"reasoning":       `{"credibilityScore": 50, "analysis": "a", "flags": [], "recommendations": []}`,
		"flags":           `{"credibilityScore": 50, "analysis": "a", "recommendations": [], "reasoning": "r"}`,
		"recommendations": `{"credibilityScore": 50, "analysis": "a", "flags": [], "reasoning": "r"}`,
	}
	for missing, raw := range cases {
		_, err := ParsePayload(raw)
		require.ErrorIs(t, err, ErrSchemaViolation, "missing %s", missing)
	}
}

func TestParsePayload_OptionalVisionFields(t *testing.T) {
	raw := `{"credibilityScore": 40, "analysis": "a", "flags": [], "recommendations": [], "reasoning": "r", "extractedText": "BREAKING", "technicalFindings": "jpeg artifacts"}`
	p, err := ParsePayload(raw)
	require.NoError(t, err)
	require.Equal(t, "BREAKING", p.ExtractedText)
	require.Equal(t, "jpeg artifacts", p.TechnicalFindings)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 100))
	long := make([]byte, 0, 5000)
	for i := 0; i < 5000; i++ {
		long = append(long, 'x')
	}
	require.Len(t, Truncate(string(long), StoredPreviewLimit), StoredPreviewLimit)
	// never split a multi-byte rune
	require.Equal(t, "héll", Truncate("héllo", 5))
}
