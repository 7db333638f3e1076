// Package vision calls the Google Cloud Vision images:annotate REST endpoint.
// The API-key flow used here is not covered by the official SDK, which expects
// service-account credentials.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	domai "github.com/pishield/pishield/internal/domain/ai"
)

const defaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"

type Client struct {
	APIKey   string
	Endpoint string
	HTTP     *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{APIKey: apiKey, Endpoint: defaultEndpoint, HTTP: http.DefaultClient}
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// ExtractText runs TEXT_DETECTION on the image and returns the full-page
// annotation. Confidence is 0.9 when text was found, 0 otherwise.
func (c *Client) ExtractText(ctx context.Context, media domai.Media) (string, float64, error) {
	if c.APIKey == "" {
		return "", 0, domai.ErrNotConfigured
	}

	req := annotateRequest{Requests: []annotateEntry{{
		Image:    annotateImage{Content: base64.StdEncoding.EncodeToString(media.Data)},
		Features: []annotateFeature{{Type: "TEXT_DETECTION", MaxResults: 1}},
	}}}

	body, err := json.Marshal(req)
	if err != nil {
		return "", 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"?key="+c.APIKey, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("vision api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("vision api error: status %d", resp.StatusCode)
	}

	var out annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("vision api decode: %w", err)
	}
	if len(out.Responses) == 0 {
		return "", 0, nil
	}
	if out.Responses[0].Error != nil {
		return "", 0, fmt.Errorf("vision api error: %s", out.Responses[0].Error.Message)
	}
	anns := out.Responses[0].TextAnnotations
	if len(anns) == 0 {
		return "", 0, nil
	}
	return anns[0].Description, 0.9, nil
}
