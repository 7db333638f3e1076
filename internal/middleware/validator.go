package middleware

import (
	"fmt"
	"strings"

	"github.com/pishield/pishield/internal/domain/reports"
)

// Request validation helpers. All checks are pure; a failure means 400 and no
// further processing.

// ValidationError marks a client input error.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidateContent checks the minimum text length for analysis submissions.
func ValidateContent(content string) error {
	if len(strings.TrimSpace(content)) < reports.MinContentLength {
		return invalidf("content must be at least %d characters long", reports.MinContentLength)
	}
	return nil
}

// ValidateContentType checks membership in the allowed enumeration.
func ValidateContentType(t string) error {
	if !reports.IsValidContentType(reports.ContentType(t)) {
		return invalidf("invalid contentType: %s (allowed: text, article, post, news, image, video, audio)", t)
	}
	return nil
}

// ValidateMIME checks that an uploaded file's MIME type belongs to the
// expected media family ("image", "video", "audio").
func ValidateMIME(mimeType, family string) error {
	if !strings.HasPrefix(mimeType, family+"/") {
		return invalidf("file must be %s format, got %s", family, mimeType)
	}
	return nil
}

// ValidateVideoSize enforces the upload cap.
func ValidateVideoSize(sizeBytes int64) error {
	if sizeBytes > reports.MaxVideoUploadBytes {
		return invalidf("Video file is too large. Maximum size is 100MB.")
	}
	return nil
}

// ClampLimit normalizes a pagination limit against a max, with defaults.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// ClampOffset floors an offset at zero.
func ClampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
