package reports

import (
	"time"
)

// ContentType enum
type ContentType string

const (
	ContentTypeText    ContentType = "text"
	ContentTypeArticle ContentType = "article"
	ContentTypePost    ContentType = "post"
	ContentTypeNews    ContentType = "news"
	ContentTypeImage   ContentType = "image"
	ContentTypeVideo   ContentType = "video"
	ContentTypeAudio   ContentType = "audio"
)

// allowed content types, checked on every submission
var validContentTypes = map[ContentType]bool{
	ContentTypeText:    true,
	ContentTypeArticle: true,
	ContentTypePost:    true,
	ContentTypeNews:    true,
	ContentTypeImage:   true,
	ContentTypeVideo:   true,
	ContentTypeAudio:   true,
}

// IsValidContentType reports whether t is one of the enumerated content types.
func IsValidContentType(t ContentType) bool {
	return validContentTypes[t]
}

// Preview limits: what gets persisted vs what history endpoints echo back.
const (
	StoredPreviewLimit  = 1000
	OwnPreviewLimit     = 200
	PublicPreviewLimit  = 100
	MinContentLength    = 10
	MaxVideoUploadBytes = 100 * 1024 * 1024
)

// Report is the persisted result of one analysis. Immutable once inserted.
type Report struct {
	ID              int64       `json:"id"`
	UserID          *string     `json:"userId,omitempty"`
	ContentType     ContentType `json:"contentType"`
	ContentPreview  string      `json:"contentPreview"`
	CredibilityScore int        `json:"credibilityScore"`
	Analysis        string      `json:"analysis"`
	Flags           []string    `json:"flags"`
	Recommendations []string    `json:"recommendations"`
	Reasoning       string      `json:"reasoning"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// HistoryItem is the trimmed row shape returned by the history endpoints.
type HistoryItem struct {
	ID               int64       `json:"id"`
	ContentType      ContentType `json:"content_type"`
	CredibilityScore int         `json:"credibility_score"`
	ContentPreview   string      `json:"content_preview"`
	CreatedAt        time.Time   `json:"created_at"`
}

// HistoryPage wraps one page of history rows. HasMore is true iff the page is full.
type HistoryPage struct {
	Analyses []*HistoryItem `json:"analyses"`
	HasMore  bool           `json:"hasMore"`
}

// Truncate cuts s to at most n bytes on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	out := make([]rune, 0, n)
	size := 0
	for _, c := range r {
		size += len(string(c))
		if size > n {
			break
		}
		out = append(out, c)
	}
	return string(out)
}
